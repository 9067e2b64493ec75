package model

// UserStatus is the account lifecycle stage stored in users.status. The set
// is closed: only the constants below are ever written, and changes must go
// through CanTransition.
type UserStatus string

const (
	StatusPending   UserStatus = "pending"   // freshly registered, awaiting admin validation
	StatusApproved  UserStatus = "approved"  // validated by an admin, may log in
	StatusActive    UserStatus = "active"    // approved account that has logged in
	StatusRejected  UserStatus = "rejected"  // denied by an admin, terminal
	StatusSuspended UserStatus = "suspended" // temporarily locked out
)

// IsValid reports whether s is one of the known statuses.
func (s UserStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusActive, StatusRejected, StatusSuspended:
		return true
	}
	return false
}

// CanLogin reports whether an account in this status may authenticate.
func (s UserStatus) CanLogin() bool {
	return s == StatusApproved || s == StatusActive
}

// transitions is the explicit status transition table. There is no path back
// to pending, and rejected is terminal.
var transitions = map[UserStatus][]UserStatus{
	StatusPending:   {StatusApproved, StatusRejected},
	StatusApproved:  {StatusActive, StatusSuspended},
	StatusActive:    {StatusSuspended},
	StatusSuspended: {StatusActive},
	StatusRejected:  {},
}

// CanTransition reports whether moving from s to target is allowed.
func (s UserStatus) CanTransition(target UserStatus) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Package queue defines the message payloads exchanged over the broker and
// the background consumer that turns them into outgoing mail.
package queue

// PasswordResetQueue is the durable queue carrying reset-mail requests.
const PasswordResetQueue = "auth.password_reset"

// PasswordResetRequested is published when a known account asks for a
// password reset. The consumer builds the mail from it without touching the
// primary database.
type PasswordResetRequested struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	RequestedAt string `json:"requested_at"`
}

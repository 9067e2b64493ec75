// Package repository implements data access over database/sql. Sentinel
// errors defined here let handlers and the auth service distinguish failure
// modes without string matching at call sites.
package repository

import "errors"

// ErrEmailExists is returned when an INSERT hits the unique email index.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a targeted UPDATE or DELETE matched no row.
var ErrNotFound = errors.New("not found")

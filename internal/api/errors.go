package api

import "fmt"

// ConflictError is the backend's answer to a duplicate identity
// (an event with the same type and timestamp, or a note at an already
// used timestamp). It is an expected response variant, not a fault;
// callers surface it as a transient notice and leave state unchanged.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	if e.Message == "" {
		return "conflict"
	}
	return e.Message
}

// ValidationError carries the server's message for a rejected request
// (4xx other than conflict, or a 5xx). No local mutation occurred.
type ValidationError struct {
	Status  int
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("server rejected request (%d): %s", e.Status, e.Message)
}

// NetworkError wraps a transport-level failure; the request may never
// have reached the server.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

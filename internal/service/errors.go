package service

import (
	"errors"
	"fmt"

	"branchdesk-server/internal/domain"
	"branchdesk-server/internal/repository"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// PersistenceError is a store read or write failure: permission, connectivity
// or a missing document.
type PersistenceError struct {
	Op         string
	Collection domain.Collection
	ID         string
	Err        error
}

func (e *PersistenceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Collection, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) NotFound() bool {
	return repository.IsNotFound(e.Err)
}

type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("sign-in failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ValidationError rejects a request before any store write is attempted.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

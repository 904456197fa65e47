package service

import "errors"

var (
	// ErrTransientWrite indicates the store rejected a write; the caller may retry.
	ErrTransientWrite = errors.New("store write failed")
	// ErrStoreUnavailable indicates the store could not be read.
	ErrStoreUnavailable = errors.New("store unavailable")
)

package entities

import "errors"

var (
	// ErrNotFound is returned when a session, chunk or keyword id does not
	// exist in the store.
	ErrNotFound = errors.New("not found")

	// ErrExpired is returned when a session is accessed past its TTL. The
	// caller is expected to cascade-delete the session afterwards.
	ErrExpired = errors.New("session expired")

	// ErrDuplicateKeyword is returned when registering a word already
	// registered for the same session.
	ErrDuplicateKeyword = errors.New("keyword already registered for session")

	// ErrInvalidInputOrder is returned by the segmenter when the fragment
	// sequence has a detectable timestamp inversion. This is a programmer
	// error, not a recoverable condition.
	ErrInvalidInputOrder = errors.New("fragments not sorted by creation time")
)

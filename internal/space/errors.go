package space

import "errors"

var (
	// ErrSpaceNotFound is returned when no space has the requested name.
	ErrSpaceNotFound = errors.New("space not found")

	// ErrSpaceExists is returned when a space name is already taken.
	ErrSpaceExists = errors.New("space already exists")
)

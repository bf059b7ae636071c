package domain

import "errors"

var (
	// ErrNotFound marks an absent record; for conversation state it is
	// equivalent to a logged-out chat.
	ErrNotFound = errors.New("entity not found")
)

package rules

import "errors"

var (
	// ErrNotFound: the rule book source is neither JSON text nor a readable file.
	ErrNotFound = errors.New("rules: rule book not found")
	// ErrMalformed: the source parsed but is not a rule book.
	ErrMalformed = errors.New("rules: rule book malformed")
	// ErrRepair: the scopes gathered for a report cannot be unified.
	ErrRepair = errors.New("rules: scopes cannot be unified, fix the rule book")
)

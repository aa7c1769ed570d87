// Package sentinel holds the infrastructure facts stores report. Callers
// match them with errors.Is; the dispatcher decides what each one means for
// a filing.
package sentinel

import "errors"

var (
	// ErrNotFound: no filing, business or tracked request with that key.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a unique key such as a business identifier is taken.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState: the row exists but cannot take the write, such as a
	// processed tracker row.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnavailable: the database or broker failed transiently.
	ErrUnavailable = errors.New("unavailable")
)

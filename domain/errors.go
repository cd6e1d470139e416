package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the referenced board, list or card does not exist.
var ErrNotFound = errors.New("not found")

// ErrAccessDenied indicates the caller is neither owner nor member of the
// board. The message deliberately carries no detail about the board.
var ErrAccessDenied = errors.New("access denied")

// ValidationError reports malformed or missing caller input. Callers must not
// retry these automatically.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string { return e.Reason }

// ConsistencyWarning reports an operation whose primary write committed while
// a secondary write failed, leaving a dangling reference until the
// reconciliation pass repairs it. The primary effect stands.
type ConsistencyWarning struct {
	BoardID string
	CardID  string
	Err     error
}

func (w ConsistencyWarning) Error() string {
	return fmt.Sprintf("board %s left inconsistent for card %s: %v", w.BoardID, w.CardID, w.Err)
}

func (w ConsistencyWarning) Unwrap() error { return w.Err }

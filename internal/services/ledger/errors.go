package ledger

import (
	"errors"
	"fmt"
)

var ErrNoFee = errors.New("source transaction carries no fee")

// DuplicateReferenceError means the generator minted a reference that already
// exists. It is an internal fault and never shown to users.
type DuplicateReferenceError struct {
	Reference string
}

func (e *DuplicateReferenceError) Error() string {
	return fmt.Sprintf("duplicate transaction reference %s", e.Reference)
}

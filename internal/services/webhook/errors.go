package webhook

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedPayload = errors.New("malformed webhook payload")
	ErrUnsupportedEvent = errors.New("unsupported webhook event")
)

// MismatchError means the notification names an account or transaction the
// ledger does not know, or contradicts it. These are acknowledged, never
// retried, and left for manual reconciliation.
type MismatchError struct {
	EventType string
	Key       string
	Reason    string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.EventType, e.Key, e.Reason)
}

func IsMismatch(err error) bool {
	var m *MismatchError
	return errors.As(err, &m)
}

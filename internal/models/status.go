package models

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusCancelled TransactionStatus = "cancelled"
)

var statusTransitions = map[TransactionStatus][]TransactionStatus{
	StatusPending: {StatusCompleted, StatusFailed, StatusCancelled},
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal states never change again.
func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Settled reports whether the record still represents money that moved or is
// moving. Failed and cancelled entries are excluded from balance replay.
func (s TransactionStatus) Settled() bool {
	return s == StatusPending || s == StatusCompleted
}

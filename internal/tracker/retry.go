package tracker

import "time"

// RetryBudget is how many delayed re-fetches a watch failure may trigger
// before a successful sample restores the budget.
type RetryBudget struct {
	Attempts int
	Delay    time.Duration

	remaining int
}

// DefaultRetryBudget allows a single retry after 10 seconds.
func DefaultRetryBudget() RetryBudget {
	return NewRetryBudget(1, 10*time.Second)
}

// NewRetryBudget creates a full budget.
func NewRetryBudget(attempts int, delay time.Duration) RetryBudget {
	return RetryBudget{Attempts: attempts, Delay: delay, remaining: attempts}
}

// Take consumes one attempt, reporting false when none is left.
func (b *RetryBudget) Take() bool {
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

// Reset restores the budget.
func (b *RetryBudget) Reset() {
	b.remaining = b.Attempts
}

// Remaining is the number of attempts left.
func (b *RetryBudget) Remaining() int {
	return b.remaining
}

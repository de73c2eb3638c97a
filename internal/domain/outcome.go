package domain

// OutcomeKind classifies how a collaborator call ended.
type OutcomeKind int

const (
	// OutcomeOK means the collaborator returned a usable value.
	OutcomeOK OutcomeKind = iota
	// OutcomeDegraded means the call failed but a fallback value was substituted.
	OutcomeDegraded
	// OutcomeFatal means the call failed and the operation cannot continue.
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeDegraded:
		return "degraded"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Outcome is the result of a collaborator call that may degrade instead of failing.
// Reason is set for degraded and fatal outcomes.
type Outcome[T any] struct {
	Kind   OutcomeKind
	Value  T
	Reason error
}

// OK wraps a successful value.
func OK[T any](v T) Outcome[T] {
	return Outcome[T]{Kind: OutcomeOK, Value: v}
}

// Degraded wraps a fallback value and the failure that forced it.
func Degraded[T any](fallback T, reason error) Outcome[T] {
	return Outcome[T]{Kind: OutcomeDegraded, Value: fallback, Reason: reason}
}

// Fatal wraps an unrecoverable failure.
func Fatal[T any](err error) Outcome[T] {
	return Outcome[T]{Kind: OutcomeFatal, Reason: err}
}

// Err returns the failure for fatal outcomes and nil otherwise.
func (o Outcome[T]) Err() error {
	if o.Kind == OutcomeFatal {
		return o.Reason
	}
	return nil
}

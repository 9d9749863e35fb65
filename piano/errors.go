package piano

import "errors"

var (
	// ErrConfiguration wraps every rejected configuration value. The
	// previous valid configuration stays active.
	ErrConfiguration = errors.New("piano: invalid configuration")
	// ErrResourceExhausted reports a press dropped because the backend
	// refused to create more nodes. The note is not registered.
	ErrResourceExhausted = errors.New("piano: backend resources exhausted")
	ErrClosed            = errors.New("piano: engine closed")
)

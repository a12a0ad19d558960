package workout

import "errors"

var (
	ErrInvalidPhase      = errors.New("operation not allowed in current phase")
	ErrUnknownDay        = errors.New("no workout for day")
	ErrInvalidDefinition = errors.New("invalid workout definition")
	ErrCanceled          = errors.New("workout canceled")
)

package resolve

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput reports a -framework marker without a framework name.
	ErrMalformedInput = errors.New("malformed dependency report")
	// ErrEncoding reports a static archive path that is not valid UTF-8.
	ErrEncoding = errors.New("static archive path is not valid UTF-8")
)

// TokenError aborts a resolution pass and names the offending token.
type TokenError struct {
	Kind  error
	Token string
	Pos   int
}

func (e *TokenError) Error() string {
	switch e.Kind {
	case ErrMalformedInput:
		return fmt.Sprintf("%v: %q at token %d is not followed by a framework name", e.Kind, e.Token, e.Pos)
	default:
		return fmt.Sprintf("%v: %q at token %d", e.Kind, e.Token, e.Pos)
	}
}

// Unwrap lets errors.Is match the sentinel kind.
func (e *TokenError) Unwrap() error {
	return e.Kind
}

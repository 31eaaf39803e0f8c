package catalog

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/agentuity/pokedex/pokeapi"
	"github.com/cockroachdb/errors"
)

// Kind classifies every failure a catalog operation can report.
type Kind int

const (
	// KindNone is the kind of a nil error.
	KindNone Kind = iota
	// KindInvalidArgument is malformed caller input. The upstream was never called.
	KindInvalidArgument
	// KindNotFound means the upstream confirmed the resource does not exist.
	KindNotFound
	// KindUnavailable means the upstream failed or could not be reached.
	KindUnavailable
	// KindInternal is anything else.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "unavailable"
	case KindInternal:
		return "internal"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var (
	// ErrInvalidArgument marks errors caused by caller input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidSort is returned for a sort rule that is not one of the four
	// supported. ParseSortRule also marks it with ErrInvalidArgument.
	ErrInvalidSort = errors.New("invalid sort")
)

// Error is a failed catalog operation tagged with its Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf classifies err. Errors that already carry a Kind keep it.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, ErrInvalidArgument) {
		return KindInvalidArgument
	}
	if errors.Is(err, pokeapi.ErrNotFound) {
		return KindNotFound
	}
	var se *pokeapi.StatusError
	if errors.As(err, &se) {
		return KindUnavailable
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindUnavailable
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return KindUnavailable
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return KindUnavailable
	}
	return KindInternal
}

func invalidArgumentf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidArgument)
}

// fail tags err with op and its kind.
func fail(op string, err error) error {
	return &Error{Kind: KindOf(err), Op: op, Err: err}
}

// failList is fail for list endpoints, which always exist upstream: a 404 there
// is an upstream fault rather than negative information.
func failList(op string, err error) error {
	kind := KindOf(err)
	if kind == KindNotFound {
		kind = KindUnavailable
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

package pokeapi

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned when the upstream answers 404 for a resource.
var ErrNotFound = errors.New("pokeapi: resource not found")

// StatusError is returned for any other non-success upstream status.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pokeapi: request to %s failed with status %d (%s)", e.URL, e.Status, http.StatusText(e.Status))
}

// Package catalog holds the product catalog core: the criteria-to-query
// builder, feedback aggregation, cover image resolution, recommendations
// and the CRUD services built on top of them.
package catalog

import (
	"errors"
	"fmt"

	"product-service/internal/query"
	"product-service/internal/store"
)

// Errors returned by the catalog core. Callers match them with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// translate maps storage errors onto catalog errors; anything unrecognised
// is wrapped with op and returned as an internal failure.
func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrReferenceNotFound):
		return fmt.Errorf("%w: %s: %v", ErrNotFound, op, err)
	case errors.Is(err, store.ErrInvalidPage), errors.Is(err, query.ErrUnknownField):
		return fmt.Errorf("%w: %s: %v", ErrInvalidArgument, op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func requireActor(actor string) error {
	if actor == "" {
		return invalidf("actor is required")
	}
	return nil
}

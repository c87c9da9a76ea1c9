package geocoding

import (
	"context"

	"github.com/UnknownOlympus/stratus/internal/models"
)

// Provider is an interface that defines a method for searching locations by free text.
// The Search method takes a context and a query string as input, and returns the
// candidate locations in the provider's order, or an error if the lookup fails.
// A query without matches yields an empty slice and no error.
type Provider interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

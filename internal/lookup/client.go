// ABOUTME: Client interface and candidate types for school/meal lookups.
// ABOUTME: The conversation engine depends on this, not on the NEIS wire format.

package lookup

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when no school matches a query, or when the
// identifier pair for a detail lookup is stale.
var ErrNotFound = errors.New("lookup: not found")

// Candidate is one school resolved from a search query. OfficeCode and
// SchoolCode together identify the school for a follow-up meal lookup.
type Candidate struct {
	Name       string
	Region     string
	OfficeCode string
	SchoolCode string
}

// Label renders the candidate the way it is shown in a disambiguation list.
func (c Candidate) Label() string {
	if c.Region == "" {
		return c.Name
	}
	return fmt.Sprintf("%s (%s)", c.Name, c.Region)
}

// Client resolves school queries and meal details.
type Client interface {
	// Search returns schools matching the query, in API order.
	// Returns ErrNotFound when nothing matches.
	Search(ctx context.Context, query string) ([]Candidate, error)

	// Detail returns today's meal menu for the identified school.
	// Returns ErrNotFound if the identifier pair no longer resolves.
	Detail(ctx context.Context, officeCode, schoolCode string) (string, error)
}

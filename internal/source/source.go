// Package source pages resources out of the upstream resource manager.
package source

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"resource-availability-backend/internal/resource"
)

// ErrNotAllowed is returned when the upstream refuses access to the requested resources.
var ErrNotAllowed = errors.New("access to resources not allowed")

// Filter selects the resources a pager or feed subscription is interested in.
type Filter struct {
	// PoolID restricts results to one pool. uuid.Nil matches every resource.
	PoolID uuid.UUID
}

// Matches reports whether r passes the filter.
func (f Filter) Matches(r resource.Resource) bool {
	return f.PoolID == uuid.Nil || r.InPool(f.PoolID)
}

func (f Filter) String() string {
	if f.PoolID == uuid.Nil {
		return "TRUE"
	}
	return "PoolIDs contains " + f.PoolID.String()
}

// Ordering names the field pages are sorted on.
type Ordering string

// OrderByName sorts resources by display name.
const OrderByName Ordering = "name"

// Cursor identifies the next page of a paging run.
type Cursor struct {
	filter   Filter
	ordering Ordering
	page     int
}

// Page is one batch of resources.
type Page struct {
	Resources []resource.Resource
	Next      Cursor
	HasMore   bool
}

// Pager pages through the resource catalogue. Implementations never fail:
// an upstream error ends the run with an empty page whose HasMore is false.
type Pager interface {
	StartPaging(ctx context.Context, filter Filter, ordering Ordering) Page
	NextPage(ctx context.Context, cursor Cursor) Page
}

// PoolLookup resolves resource pools by id. A pool that does not exist yields nil, nil.
type PoolLookup interface {
	GetPool(ctx context.Context, id uuid.UUID) (*resource.Pool, error)
}

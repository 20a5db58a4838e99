package rows

import (
	"time"

	"resource-availability-backend/internal/resource"
)

// Factory converts resources into rows, evaluating availability windows at a fixed Context.
type Factory struct {
	ctx resource.Context
}

// NewFactory creates a Factory bound to ctx.
func NewFactory(ctx resource.Context) *Factory {
	return &Factory{ctx: ctx}
}

// Context returns the reference frame the factory evaluates windows in.
func (f *Factory) Context() resource.Context {
	return f.ctx
}

// ResourceToRows returns the rows describing r's availability. The result is never empty.
func (f *Factory) ResourceToRows(r resource.Resource) []Row {
	// Any mode other than Available blocks the resource entirely, whatever its window says.
	if r.Mode != resource.ModeAvailable {
		return []Row{newRow(r, ptr(MinTime), ptr(MaxTime), ptr(string(resource.BoundaryFixed)))}
	}

	ranges := f.unavailableRanges(r)
	if len(ranges) == 0 {
		return []Row{newRow(r, nil, nil, nil)}
	}

	result := make([]Row, 0, len(ranges))
	for _, rg := range ranges {
		start := rg.Start.Time
		if start.IsZero() {
			start = MinTime
		}
		stop := rg.Stop.Time
		if stop.IsZero() {
			stop = MaxTime
		}
		result = append(result, newRow(r, &start, &stop, ptr(string(rg.Start.Boundary))))
	}
	return result
}

func (f *Factory) unavailableRanges(r resource.Resource) []resource.Range {
	if r.Window == nil {
		return nil
	}
	return r.Window.UnavailableRanges(f.ctx)
}

func newRow(r resource.Resource, start, stop *time.Time, boundary *string) Row {
	if start != nil {
		start = ptr(start.UTC())
	}
	if stop != nil {
		stop = ptr(stop.UTC())
	}
	return Row{
		Key:          Key(r.ID, start, stop),
		ResourceID:   r.ID.String(),
		Start:        start,
		End:          stop,
		ResourceName: r.Name,
		Boundary:     boundary,
		Metadata:     Metadata{ResourceID: r.ID},
	}
}

func ptr[T any](v T) *T {
	return &v
}

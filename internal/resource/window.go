package resource

import "time"

// Boundary classifies a range bound as absolute or relative to Context.Now.
type Boundary string

const (
	BoundaryFixed         Boundary = "Fixed"
	BoundaryRollingWindow Boundary = "RollingWindow"
)

// Context is the reference frame availability is evaluated in.
type Context struct {
	Now time.Time
}

// Bound is one end of an unavailable range. A zero Time means the bound is open.
type Bound struct {
	Time     time.Time
	Boundary Boundary
}

// Range is a span of time during which a resource cannot be used.
type Range struct {
	Start Bound
	Stop  Bound
}

// Window computes the unavailable ranges of a resource relative to a Context.
// Implementations must return ranges ordered by start and non-overlapping.
type Window interface {
	UnavailableRanges(ctx Context) []Range
}

// BasicWindow restricts a resource to an optional absolute span and an optional
// rolling horizon measured from Context.Now.
type BasicWindow struct {
	AvailableFrom  *time.Time
	AvailableUntil *time.Time
	// RollingWindow limits availability to [Now, Now+RollingWindow). Zero disables it.
	RollingWindow time.Duration
}

// UnavailableRanges implements Window.
func (w BasicWindow) UnavailableRanges(ctx Context) []Range {
	var (
		start    *time.Time
		end      *time.Time
		endBound = BoundaryFixed
	)

	if w.AvailableFrom != nil {
		start = w.AvailableFrom
	}
	if w.AvailableUntil != nil {
		end = w.AvailableUntil
	}
	if w.RollingWindow > 0 {
		horizon := ctx.Now.Add(w.RollingWindow)
		if end == nil || horizon.Before(*end) {
			end = &horizon
			endBound = BoundaryRollingWindow
		}
	}

	// Nothing is ever available: one range covering all of time.
	if start != nil && end != nil && !start.Before(*end) {
		return []Range{{
			Start: Bound{Boundary: BoundaryFixed},
			Stop:  Bound{Boundary: BoundaryFixed},
		}}
	}

	var ranges []Range
	if start != nil {
		ranges = append(ranges, Range{
			Start: Bound{Boundary: BoundaryFixed},
			Stop:  Bound{Time: start.UTC(), Boundary: BoundaryFixed},
		})
	}
	if end != nil {
		ranges = append(ranges, Range{
			Start: Bound{Time: end.UTC(), Boundary: endBound},
			Stop:  Bound{Boundary: BoundaryFixed},
		})
	}
	return ranges
}

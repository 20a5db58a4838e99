package resource

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicWindow_UnavailableRanges(t *testing.T) {
	now := time.Date(2025, 1, 13, 10, 0, 0, 0, time.UTC)
	ctx := Context{Now: now}
	from := now.Add(10 * time.Hour)
	until := now.Add(48 * time.Hour)
	early := now.Add(-time.Hour)

	testCases := []struct {
		name     string
		window   BasicWindow
		expected []Range
	}{
		{
			name:     "No restrictions",
			window:   BasicWindow{},
			expected: nil,
		},
		{
			name:   "Available from",
			window: BasicWindow{AvailableFrom: &from},
			expected: []Range{
				{Start: Bound{Boundary: BoundaryFixed}, Stop: Bound{Time: from, Boundary: BoundaryFixed}},
			},
		},
		{
			name:   "Available from and until",
			window: BasicWindow{AvailableFrom: &from, AvailableUntil: &until},
			expected: []Range{
				{Start: Bound{Boundary: BoundaryFixed}, Stop: Bound{Time: from, Boundary: BoundaryFixed}},
				{Start: Bound{Time: until, Boundary: BoundaryFixed}, Stop: Bound{Boundary: BoundaryFixed}},
			},
		},
		{
			name:   "Rolling window ends before until",
			window: BasicWindow{AvailableUntil: &until, RollingWindow: 24 * time.Hour},
			expected: []Range{
				{Start: Bound{Time: now.Add(24 * time.Hour), Boundary: BoundaryRollingWindow}, Stop: Bound{Boundary: BoundaryFixed}},
			},
		},
		{
			name:   "Until ends before rolling window",
			window: BasicWindow{AvailableUntil: &until, RollingWindow: 72 * time.Hour},
			expected: []Range{
				{Start: Bound{Time: until, Boundary: BoundaryFixed}, Stop: Bound{Boundary: BoundaryFixed}},
			},
		},
		{
			name:   "Empty available span",
			window: BasicWindow{AvailableFrom: &until, AvailableUntil: &early},
			expected: []Range{
				{Start: Bound{Boundary: BoundaryFixed}, Stop: Bound{Boundary: BoundaryFixed}},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.window.UnavailableRanges(ctx))
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("maintenance")
	require.NoError(t, err)
	assert.Equal(t, ModeMaintenance, m)

	m, err = ParseMode(" Available ")
	require.NoError(t, err)
	assert.Equal(t, ModeAvailable, m)

	_, err = ParseMode("Broken")
	assert.Error(t, err)
}

func TestResource_InPool(t *testing.T) {
	pool := uuid.New()
	r := Resource{ID: uuid.New(), PoolIDs: []uuid.UUID{uuid.New(), pool}}

	assert.True(t, r.InPool(pool))
	assert.False(t, r.InPool(uuid.New()))
}

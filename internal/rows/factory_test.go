package rows

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resource-availability-backend/internal/resource"
)

func TestTicks(t *testing.T) {
	assert.Equal(t, int64(0), Ticks(MinTime))
	assert.Equal(t, int64(3155378975999999999), Ticks(MaxTime))
	// 1970-01-01 is 621355968000000000 ticks after 0001-01-01.
	assert.Equal(t, int64(621355968000000000), Ticks(time.Unix(0, 0)))
	assert.Equal(t, int64(621355968000000001), Ticks(time.Unix(0, 100)))
}

func TestKey(t *testing.T) {
	id := uuid.MustParse("5d3c9e5c-3f0e-4a39-9d7e-7f3f3e0b1c2a")

	assert.Equal(t, "5d3c9e5c-3f0e-4a39-9d7e-7f3f3e0b1c2a_0_0", Key(id, nil, nil))
	assert.Equal(t, "5d3c9e5c-3f0e-4a39-9d7e-7f3f3e0b1c2a_0_3155378975999999999", Key(id, &MinTime, &MaxTime))
}

func TestFactory_ResourceToRows(t *testing.T) {
	now := time.Date(2025, 1, 13, 10, 0, 0, 0, time.UTC)
	factory := NewFactory(resource.Context{Now: now})
	from := now.Add(10 * time.Hour)
	until := now.Add(48 * time.Hour)
	fixed := string(resource.BoundaryFixed)
	rolling := string(resource.BoundaryRollingWindow)

	type expectedRow struct {
		start    *time.Time
		end      *time.Time
		boundary *string
	}

	testCases := []struct {
		name     string
		mode     resource.Mode
		window   resource.Window
		expected []expectedRow
	}{
		{
			name:     "Unavailable mode ignores window",
			mode:     resource.ModeUnavailable,
			window:   resource.BasicWindow{AvailableFrom: &from},
			expected: []expectedRow{{&MinTime, &MaxTime, &fixed}},
		},
		{
			name:     "Maintenance mode",
			mode:     resource.ModeMaintenance,
			expected: []expectedRow{{&MinTime, &MaxTime, &fixed}},
		},
		{
			name:     "Available without window",
			mode:     resource.ModeAvailable,
			expected: []expectedRow{{nil, nil, nil}},
		},
		{
			name:     "Available with unrestricted window",
			mode:     resource.ModeAvailable,
			window:   resource.BasicWindow{},
			expected: []expectedRow{{nil, nil, nil}},
		},
		{
			name:     "Available from",
			mode:     resource.ModeAvailable,
			window:   resource.BasicWindow{AvailableFrom: &from},
			expected: []expectedRow{{&MinTime, &from, &fixed}},
		},
		{
			name:   "Available from with rolling window",
			mode:   resource.ModeAvailable,
			window: resource.BasicWindow{AvailableFrom: &from, AvailableUntil: &until, RollingWindow: 24 * time.Hour},
			expected: []expectedRow{
				{&MinTime, &from, &fixed},
				{ptr(now.Add(24 * time.Hour)), &MaxTime, &rolling},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := resource.Resource{ID: uuid.New(), Name: "Encoder 1", Mode: tc.mode, Window: tc.window}

			result := factory.ResourceToRows(r)

			require.Len(t, result, len(tc.expected))
			for i, exp := range tc.expected {
				row := result[i]
				assert.Equal(t, Key(r.ID, exp.start, exp.end), row.Key)
				assert.Equal(t, r.ID.String(), row.ResourceID)
				assert.Equal(t, "Encoder 1", row.ResourceName)
				assert.Equal(t, exp.start, row.Start)
				assert.Equal(t, exp.end, row.End)
				assert.Equal(t, exp.boundary, row.Boundary)
				assert.Equal(t, r.ID, row.Metadata.ResourceID)
			}
		})
	}
}

func TestFactory_SameRangeSameKey(t *testing.T) {
	factory := NewFactory(resource.Context{Now: time.Now()})
	from := time.Now().Add(time.Hour)
	r := resource.Resource{ID: uuid.New(), Name: "Before", Mode: resource.ModeAvailable, Window: resource.BasicWindow{AvailableFrom: &from}}

	before := factory.ResourceToRows(r)
	r.Name = "After"
	after := factory.ResourceToRows(r)

	require.Len(t, before, 1)
	require.Len(t, after, 1)
	assert.Equal(t, before[0].Key, after[0].Key)
	assert.Equal(t, "After", after[0].ResourceName)
}

func TestRow_MarshalJSON(t *testing.T) {
	id := uuid.MustParse("5d3c9e5c-3f0e-4a39-9d7e-7f3f3e0b1c2a")
	factory := NewFactory(resource.Context{Now: time.Now()})

	result := factory.ResourceToRows(resource.Resource{ID: id, Name: "Encoder 1", Mode: resource.ModeAvailable})
	require.Len(t, result, 1)

	data, err := json.Marshal(result[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"key": "5d3c9e5c-3f0e-4a39-9d7e-7f3f3e0b1c2a_0_0",
		"cells": ["5d3c9e5c-3f0e-4a39-9d7e-7f3f3e0b1c2a", null, null, "Encoder 1", null],
		"metadata": {"resourceId": "5d3c9e5c-3f0e-4a39-9d7e-7f3f3e0b1c2a"}
	}`, string(data))
	assert.True(t, FullyAvailable(result))
}

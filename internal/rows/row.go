package rows

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// MinTime renders "unavailable since the dawn of time".
	MinTime = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	// MaxTime renders "unavailable forever".
	MaxTime = time.Date(9999, time.December, 31, 23, 59, 59, 999999900, time.UTC)
)

const (
	ticksPerSecond = int64(time.Second / 100)
	nanosPerTick   = int64(100)
)

// minUnix is MinTime expressed in Unix seconds.
var minUnix = MinTime.Unix()

// Ticks returns t as the number of 100ns intervals since MinTime.
func Ticks(t time.Time) int64 {
	t = t.UTC()
	return (t.Unix()-minUnix)*ticksPerSecond + int64(t.Nanosecond())/nanosPerTick
}

// Key builds the row key "{resourceID}_{startTicks|0}_{stopTicks|0}".
// Keys are stable across transformations, so equal keys identify the same logical row.
func Key(resourceID uuid.UUID, start, stop *time.Time) string {
	var startTicks, stopTicks int64
	if start != nil {
		startTicks = Ticks(*start)
	}
	if stop != nil {
		stopTicks = Ticks(*stop)
	}
	return fmt.Sprintf("%s_%d_%d", resourceID, startTicks, stopTicks)
}

// ColumnType is the value type of a column.
type ColumnType string

const (
	ColumnString   ColumnType = "string"
	ColumnDateTime ColumnType = "datetime"
)

// Column describes one cell position of a Row.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Columns is the fixed column layout every Row follows. Changing it is a wire break.
var Columns = []Column{
	{Name: "Resource ID", Type: ColumnString},
	{Name: "Start time", Type: ColumnDateTime},
	{Name: "End time", Type: ColumnDateTime},
	{Name: "Resource Name", Type: ColumnString},
	{Name: "Type", Type: ColumnString}, // Rolling window or fixed
}

// Metadata links a row back to the resource it was derived from.
type Metadata struct {
	ResourceID uuid.UUID `json:"resourceId"`
}

// Row is one derived availability record.
type Row struct {
	Key          string
	ResourceID   string
	Start        *time.Time
	End          *time.Time
	ResourceName string
	Boundary     *string
	Metadata     Metadata
}

// Cells returns the row values in column order.
func (r Row) Cells() []any {
	cells := make([]any, 0, len(Columns))
	cells = append(cells, r.ResourceID)
	if r.Start != nil {
		cells = append(cells, *r.Start)
	} else {
		cells = append(cells, nil)
	}
	if r.End != nil {
		cells = append(cells, *r.End)
	} else {
		cells = append(cells, nil)
	}
	cells = append(cells, r.ResourceName)
	if r.Boundary != nil {
		cells = append(cells, *r.Boundary)
	} else {
		cells = append(cells, nil)
	}
	return cells
}

// IsAvailableSentinel reports whether the row is the "no restriction on record" row.
func (r Row) IsAvailableSentinel() bool {
	return r.Start == nil && r.End == nil && r.Boundary == nil
}

type wireRow struct {
	Key      string   `json:"key"`
	Cells    []any    `json:"cells"`
	Metadata Metadata `json:"metadata"`
}

// MarshalJSON encodes the row as {key, cells, metadata} with cells in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRow{Key: r.Key, Cells: r.Cells(), Metadata: r.Metadata})
}

// FullyAvailable reports whether a transformation result is the single sentinel row.
func FullyAvailable(rs []Row) bool {
	return len(rs) == 1 && rs[0].IsAvailableSentinel()
}

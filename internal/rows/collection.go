package rows

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"resource-availability-backend/internal/resource"
)

// Updater receives the row operations produced by live changes.
type Updater interface {
	AddRow(row Row)
	UpdateRow(row Row)
	RemoveRow(key string)
}

// Collection tracks the rows published for each resource and decides which
// rows to add, update or remove when a resource changes.
type Collection struct {
	factory *Factory

	mu           sync.Mutex
	lastModified map[uuid.UUID]time.Time
	rows         map[uuid.UUID][]Row
	updater      Updater
}

// NewCollection creates an empty Collection that derives rows with factory.
func NewCollection(factory *Factory) *Collection {
	return &Collection{
		factory:      factory,
		lastModified: make(map[uuid.UUID]time.Time),
		rows:         make(map[uuid.UUID][]Row),
	}
}

// SetUpdater sets the sink for row operations. A nil updater discards them.
func (c *Collection) SetUpdater(u Updater) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updater = u
}

// Register records the latest state of r and returns its rows.
//
// A state that is not newer than the one already registered for r.ID is
// ignored and an empty slice is returned. When notify is true the difference
// with the previously registered rows is sent to the updater.
func (c *Collection) Register(r resource.Resource, notify bool) []Row {
	var (
		oldRows []Row
		newRows []Row
		updater Updater
	)

	c.mu.Lock()
	if ts, ok := c.lastModified[r.ID]; ok && !ts.Before(r.LastModified) {
		c.mu.Unlock()
		return []Row{}
	}
	c.lastModified[r.ID] = r.LastModified
	oldRows = c.rows[r.ID]
	newRows = c.factory.ResourceToRows(r)
	c.rows[r.ID] = newRows
	updater = c.updater
	c.mu.Unlock()

	if !notify {
		return newRows
	}

	emitDiff(updater, oldRows, newRows)
	return newRows
}

// Remove forgets resource id and removes every row it owned.
func (c *Collection) Remove(id uuid.UUID) {
	c.mu.Lock()
	delete(c.lastModified, id)
	removed, ok := c.rows[id]
	delete(c.rows, id)
	updater := c.updater
	c.mu.Unlock()

	if !ok || updater == nil {
		return
	}
	for _, row := range removed {
		updater.RemoveRow(row.Key)
	}
}

// Rows returns a copy of the rows currently registered for id.
func (c *Collection) Rows(id uuid.UUID) []Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Row(nil), c.rows[id]...)
}

// Len returns the number of tracked resources.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rows)
}

// emitDiff sends the minimal operations turning oldRows into newRows: an
// update for every surviving key, an add for every new key and a remove for
// every key that disappeared.
func emitDiff(u Updater, oldRows, newRows []Row) {
	oldKeys := make(map[string]struct{}, len(oldRows))
	for _, row := range oldRows {
		oldKeys[row.Key] = struct{}{}
	}

	for _, row := range newRows {
		if _, ok := oldKeys[row.Key]; ok {
			delete(oldKeys, row.Key)
			if u != nil {
				u.UpdateRow(row)
			}
			continue
		}
		if u != nil {
			u.AddRow(row)
		}
	}

	if u == nil {
		return
	}
	// Removals follow old-row order so the sequence is deterministic.
	for _, row := range oldRows {
		if _, ok := oldKeys[row.Key]; ok {
			u.RemoveRow(row.Key)
		}
	}
}

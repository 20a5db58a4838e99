package resource

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mode is the operational mode a resource is in.
type Mode string

const (
	ModeAvailable   Mode = "Available"
	ModeUnavailable Mode = "Unavailable"
	ModeMaintenance Mode = "Maintenance"
)

// ParseMode converts an upstream mode name into a Mode. Matching is case-insensitive.
func ParseMode(raw string) (Mode, error) {
	for _, m := range []Mode{ModeAvailable, ModeUnavailable, ModeMaintenance} {
		if strings.EqualFold(strings.TrimSpace(raw), string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown resource mode %q", raw)
}

// Resource is a snapshot of an externally-owned resource.
type Resource struct {
	ID      uuid.UUID
	Name    string
	Mode    Mode
	PoolIDs []uuid.UUID
	// Window is nil when the resource has no availability window.
	Window Window
	// LastModified is supplied by the owning system and never decreases for a given ID.
	LastModified time.Time
}

// InPool reports whether the resource belongs to the given pool.
func (r Resource) InPool(poolID uuid.UUID) bool {
	for _, id := range r.PoolIDs {
		if id == poolID {
			return true
		}
	}
	return false
}

// Pool is a named group of resources.
type Pool struct {
	ID   uuid.UUID
	Name string
}

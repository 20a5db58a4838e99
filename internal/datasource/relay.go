package datasource

import (
	"sync"

	"resource-availability-backend/internal/rows"
)

type pendingOp struct {
	kind string
	row  rows.Row
	key  string
}

// relay is the updater a session installs on its collection for its whole
// lifetime. Operations emitted while no consumer is attached are queued and
// replayed, in order, to the next consumer that attaches.
type relay struct {
	mu      sync.Mutex
	target  rows.Updater
	pending []pendingOp
	closed  bool
}

func (r *relay) AddRow(row rows.Row) { r.emit(pendingOp{kind: "add", row: row}) }

func (r *relay) UpdateRow(row rows.Row) { r.emit(pendingOp{kind: "update", row: row}) }

func (r *relay) RemoveRow(key string) { r.emit(pendingOp{kind: "remove", key: key}) }

func (r *relay) emit(op pendingOp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.closed:
	case r.target != nil:
		deliver(r.target, op)
	default:
		r.pending = append(r.pending, op)
	}
}

// attach replays the queued operations to u and routes later ones to it.
// It reports false when a consumer is already attached or the relay is closed.
func (r *relay) attach(u rows.Updater) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.target != nil {
		return false
	}
	for _, op := range r.pending {
		deliver(u, op)
	}
	r.pending = nil
	r.target = u
	return true
}

// detach goes back to queueing.
func (r *relay) detach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = nil
}

// close drops queued operations and discards every later one.
func (r *relay) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.target = nil
	r.pending = nil
}

func deliver(u rows.Updater, op pendingOp) {
	switch op.kind {
	case "add":
		u.AddRow(op.row)
	case "update":
		u.UpdateRow(op.row)
	case "remove":
		u.RemoveRow(op.key)
	}
}

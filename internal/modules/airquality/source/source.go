// Package source publishes the current validated table as an immutable snapshot.
package source

import (
	"context"
	"sync/atomic"
	"time"

	"airquality-dashboard/internal/modules/airquality/types"
)

// Snapshot is the outcome of the latest load. Exactly one of Table and Err is set.
type Snapshot struct {
	Table  *types.Table
	Report types.LoadReport
	Err    error
	// Version increases with every published snapshot.
	Version uint64
}

// Ready reports whether the snapshot holds a table.
func (s Snapshot) Ready() bool {
	return s.Err == nil && s.Table != nil
}

// Source yields the working dataset. Snapshot never blocks; Reload replaces it.
type Source interface {
	Snapshot() Snapshot
	Reload(ctx context.Context) error
	Name() string
}

// holder swaps snapshots atomically so readers never lock.
type holder struct {
	current atomic.Pointer[Snapshot]
	version atomic.Uint64
}

func (h *holder) load() Snapshot {
	if s := h.current.Load(); s != nil {
		return *s
	}
	return Snapshot{Err: types.ErrNotLoaded}
}

func (h *holder) publish(t *types.Table, report types.LoadReport, err error) Snapshot {
	s := Snapshot{Table: t, Report: report, Err: err, Version: h.version.Add(1)}
	if err != nil {
		s.Table = nil
	}
	if s.Report.LoadedAt.IsZero() {
		s.Report.LoadedAt = time.Now().UTC()
	}
	h.current.Store(&s)
	return s
}

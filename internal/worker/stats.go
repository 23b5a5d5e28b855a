package worker

import (
	"sync/atomic"

	"github.com/MrSnakeDoc/cellar/internal/reconcile"
	"github.com/MrSnakeDoc/cellar/internal/transfer"
)

// Stats are the aggregate counters shared by all workers.
type Stats struct {
	uploaded          atomic.Int64
	restored          atomic.Int64
	deleted           atomic.Int64
	reconstructed     atomic.Int64
	localDeleted      atomic.Int64
	restoresRequested atomic.Int64
	restoresPending   atomic.Int64
	skipped           atomic.Int64
	failed            atomic.Int64
	bytesUp           atomic.Int64
	bytesDown         atomic.Int64
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Uploaded          int64 `json:"uploaded" yaml:"uploaded"`
	Restored          int64 `json:"restored" yaml:"restored"`
	Deleted           int64 `json:"deleted" yaml:"deleted"`
	Reconstructed     int64 `json:"reconstructed" yaml:"reconstructed"`
	LocalDeleted      int64 `json:"local_deleted" yaml:"local_deleted"`
	RestoresRequested int64 `json:"restores_requested" yaml:"restores_requested"`
	RestoresPending   int64 `json:"restores_pending" yaml:"restores_pending"`
	Skipped           int64 `json:"skipped" yaml:"skipped"`
	Failed            int64 `json:"failed" yaml:"failed"`
	BytesUp           int64 `json:"bytes_up" yaml:"bytes_up"`
	BytesDown         int64 `json:"bytes_down" yaml:"bytes_down"`
}

// BytesMoved is the total transferred in both directions.
func (s Snapshot) BytesMoved() int64 { return s.BytesUp + s.BytesDown }

// Record accounts for one finished unit.
func (s *Stats) Record(u reconcile.Unit, out transfer.Outcome, err error) {
	if err != nil {
		s.failed.Add(1)
		return
	}
	if out.Skipped {
		s.skipped.Add(1)
		return
	}
	switch u.Kind {
	case reconcile.UnitUpload:
		s.uploaded.Add(1)
		s.bytesUp.Add(out.Bytes)
		if out.LocalRemoved {
			s.localDeleted.Add(1)
		}
	case reconcile.UnitRestore:
		if out.State == transfer.StateRestorePending {
			s.restoresPending.Add(1)
			if out.Requested {
				s.restoresRequested.Add(1)
			}
			return
		}
		s.restored.Add(1)
		s.bytesDown.Add(out.Bytes)
	case reconcile.UnitDelete:
		s.deleted.Add(1)
	case reconcile.UnitReconstruct:
		s.reconstructed.Add(1)
	case reconcile.UnitLocalDelete:
		s.localDeleted.Add(1)
	}
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Uploaded:          s.uploaded.Load(),
		Restored:          s.restored.Load(),
		Deleted:           s.deleted.Load(),
		Reconstructed:     s.reconstructed.Load(),
		LocalDeleted:      s.localDeleted.Load(),
		RestoresRequested: s.restoresRequested.Load(),
		RestoresPending:   s.restoresPending.Load(),
		Skipped:           s.skipped.Load(),
		Failed:            s.failed.Load(),
		BytesUp:           s.bytesUp.Load(),
		BytesDown:         s.bytesDown.Load(),
	}
}

package transfer

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/cellar/internal/logger"
	"github.com/MrSnakeDoc/cellar/internal/models"
	"github.com/MrSnakeDoc/cellar/internal/placeholder"
	"github.com/MrSnakeDoc/cellar/internal/remote"
)

// Restorer drives a RESTORE placeholder through the retrieval states.
type Restorer struct {
	Retriever   *Retriever
	Destination Destination
	Layout      placeholder.Layout
}

func (r *Restorer) Restore(ctx context.Context, c remote.Client, ph models.Placeholder) (Outcome, error) {
	st, err := r.Retriever.Advance(ctx, c, ph.Key, ph.VersionID)
	if err != nil {
		return Outcome{State: StateFailed}, err
	}

	switch st.State {
	case StateRestorePending:
		out := Outcome{State: StateRestorePending, Requested: st.Requested, Message: "restore in progress"}
		if st.Requested {
			out.Message = "restore request placed"
		}
		return out, nil
	case StateReady, StateRestoreReady:
	default:
		return Outcome{State: StateFailed}, fmt.Errorf("%s: unexpected state %s", ph.Key, st.State)
	}

	if st.Object.Size != ph.Size {
		return Outcome{State: StateFailed}, fmt.Errorf("%w: %s remote %d, placeholder %d", ErrChanged, ph.Key, st.Object.Size, ph.Size)
	}

	logger.Debug("%s: %s -> %s (%s)", ph.Key, st.State, StateTransferring, r.Destination.Name())
	n, err := r.Destination.Transfer(ctx, c, ph)
	if err != nil {
		return Outcome{State: StateFailed}, err
	}

	if _, err := placeholder.Rename(ph, models.PlaceholderStandard, r.Layout); err != nil {
		return Outcome{State: StateFailed, Bytes: n}, err
	}
	return Outcome{State: StateDone, Bytes: n, Message: "restored to " + r.Destination.Name()}, nil
}

package transfer

import (
	"context"
	"errors"

	"github.com/MrSnakeDoc/cellar/internal/logger"
	"github.com/MrSnakeDoc/cellar/internal/models"
	"github.com/MrSnakeDoc/cellar/internal/remote"
	"github.com/MrSnakeDoc/cellar/internal/retry"
)

// Retriever moves an object from REQUESTED to a state where it can be read.
// Pending restores are not polled; the next run asks again.
type Retriever struct {
	Registry *Registry
	Retry    retry.Policy
	Days     int
	Tier     string
}

// Status is the result of one Advance call.
type Status struct {
	State     State
	Object    models.RemoteObject
	Requested bool
}

func (r *Retriever) Advance(ctx context.Context, c remote.Client, key, versionID string) (Status, error) {
	obj, err := retry.Value(ctx, r.Retry, "stat "+key, func(ctx context.Context) (models.RemoteObject, error) {
		o, err := c.Stat(ctx, key, versionID)
		return o, permanentOn(err, notRetryable...)
	})
	if err != nil {
		return Status{State: StateFailed}, err
	}

	st := Status{Object: obj}
	if obj.Tier != models.TierCold {
		st.State = StateReady
		return st, nil
	}

	switch obj.Restore {
	case models.RestoreReady:
		st.State = StateRestoreReady
	case models.RestorePending:
		st.State = StateRestorePending
	default:
		st.State = StateRestorePending
		if !r.Registry.claim(key) {
			logger.Debug("restore already requested for %s in this run", key)
			return st, nil
		}
		err := r.Retry.Do(ctx, "restore request "+key, func(ctx context.Context) error {
			return permanentOn(c.RequestRestore(ctx, key, versionID, remote.RestoreOptions{Days: r.Days, Tier: r.Tier}), notRetryable...)
		})
		switch {
		case errors.Is(err, remote.ErrRestoreInProgress):
			// Someone else asked first; same as pending.
		case err != nil:
			return Status{State: StateFailed, Object: obj}, err
		default:
			st.Requested = true
		}
	}
	return st, nil
}

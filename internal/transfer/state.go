package transfer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/cellar/internal/remote"
	"github.com/MrSnakeDoc/cellar/internal/retry"
)

// State is a step of tier-aware retrieval.
type State int

const (
	StateRequested State = iota
	StateReady
	StateRestorePending
	StateRestoreReady
	StateTransferring
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRequested:
		return "REQUESTED"
	case StateReady:
		return "READY"
	case StateRestorePending:
		return "RESTORE_PENDING"
	case StateRestoreReady:
		return "RESTORE_READY"
	case StateTransferring:
		return "TRANSFERRING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrSizeMismatch is fatal for the unit: the transferred bytes do not
	// match what the placeholder recorded.
	ErrSizeMismatch = errors.New("size doesn't match")
	// ErrChanged means the remote side moved since reconciliation.
	ErrChanged = errors.New("remote object changed since reconciliation")
	// ErrUnencodable means the key cannot be recorded in a placeholder.
	ErrUnencodable = errors.New("key cannot be recorded in a placeholder")
	// ErrOccupied means a restore target path holds something other than a regular file.
	ErrOccupied = errors.New("local path occupied")
)

// Outcome is what a unit did.
type Outcome struct {
	State   State
	Bytes   int64
	Skipped bool
	// Requested is set when this unit placed a cold-tier restore request.
	Requested bool
	// LocalRemoved is set when the verified local copy was deleted.
	LocalRemoved bool
	Message      string
}

// Registry remembers which keys had a restore request placed during this run.
type Registry struct {
	mu        sync.Mutex
	requested map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{requested: make(map[string]struct{})}
}

// claim returns true the first time key is seen.
func (r *Registry) claim(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requested[key]; ok {
		return false
	}
	r.requested[key] = struct{}{}
	return true
}

// Requested reports whether key was claimed in this run.
func (r *Registry) Requested(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.requested[key]
	return ok
}

// permanentOn stops retries for errors no further attempt can fix.
func permanentOn(err error, targets ...error) error {
	for _, t := range targets {
		if errors.Is(err, t) {
			return retry.Permanent(err)
		}
	}
	return err
}

var notRetryable = []error{remote.ErrNotFound, remote.ErrRestoreInProgress, ErrSizeMismatch, ErrChanged}

package reconcile

import (
	"fmt"

	"github.com/MrSnakeDoc/cellar/internal/models"
)

// State is the consistency state of one key.
type State int

const (
	StateError State = iota
	StateUploadCandidate
	StateArchived
	StateArchivedLocalCopy
	StateRestoreRequested
	StateRestoreRequestedRemote
	StateDeleteRequested
	StateDeleteRequestedLocalCopy
	StateReconstructPlaceholder
	StateRemoteMarker
)

var stateNames = map[State]string{
	StateError:                    "error",
	StateUploadCandidate:          "upload-candidate",
	StateArchived:                 "archived",
	StateArchivedLocalCopy:        "archived-local-copy",
	StateRestoreRequested:         "restore-requested",
	StateRestoreRequestedRemote:   "restore-requested-remote",
	StateDeleteRequested:          "delete-requested",
	StateDeleteRequestedLocalCopy: "delete-requested-local-copy",
	StateReconstructPlaceholder:   "reconstruct-placeholder",
	StateRemoteMarker:             "remote-marker",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Entry joins the three views of a key.
type Entry struct {
	Key         string
	AssetPath   string
	Local       *models.LocalAsset
	LocalSize   int64
	HasLocal    bool
	Placeholder *models.Placeholder
	Remote      *models.RemoteObject
	State       State
}

type UnitKind int

const (
	UnitUpload UnitKind = iota
	UnitRestore
	UnitDelete
	UnitReconstruct
	UnitLocalDelete
)

func (k UnitKind) String() string {
	switch k {
	case UnitUpload:
		return "upload"
	case UnitRestore:
		return "restore"
	case UnitDelete:
		return "delete"
	case UnitReconstruct:
		return "reconstruct"
	case UnitLocalDelete:
		return "local-delete"
	default:
		return fmt.Sprintf("UnitKind(%d)", int(k))
	}
}

// Unit is one independently retryable operation.
type Unit struct {
	Kind        UnitKind
	Key         string
	Asset       models.LocalAsset
	Placeholder models.Placeholder
	Remote      models.RemoteObject
}

// Size is the number of bytes the unit is expected to move.
func (u Unit) Size() int64 {
	switch u.Kind {
	case UnitUpload, UnitLocalDelete:
		return u.Asset.Size
	case UnitReconstruct:
		return u.Remote.Size
	default:
		return u.Placeholder.Size
	}
}

func (u Unit) String() string {
	return fmt.Sprintf("%s %s", u.Kind, u.Key)
}

// Plan is the outcome of one reconciliation.
type Plan struct {
	Entries []Entry

	Uploads      []Unit
	Restores     []Unit
	Deletes      []Unit
	Reconstructs []Unit
	LocalDeletes []Unit

	// SafeToDelete lists archived keys whose local copy is still present.
	SafeToDelete []string
	Markers      []string

	Findings []models.Finding
}

// Rejected reports whether the plan must not be executed.
func (p *Plan) Rejected() bool {
	return len(p.Findings) > 0
}

// Units returns every unit in a stable order.
func (p *Plan) Units() []Unit {
	out := make([]Unit, 0, len(p.Uploads)+len(p.Restores)+len(p.Deletes)+len(p.Reconstructs)+len(p.LocalDeletes))
	out = append(out, p.Uploads...)
	out = append(out, p.Restores...)
	out = append(out, p.Deletes...)
	out = append(out, p.Reconstructs...)
	out = append(out, p.LocalDeletes...)
	return out
}

// FindingsOf filters findings by category.
func (p *Plan) FindingsOf(c models.FindingCategory) []models.Finding {
	var out []models.Finding
	for _, f := range p.Findings {
		if f.Category == c {
			out = append(out, f)
		}
	}
	return out
}

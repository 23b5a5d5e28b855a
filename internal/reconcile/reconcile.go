package reconcile

import (
	"fmt"
	"sort"

	"github.com/MrSnakeDoc/cellar/internal/models"
	"github.com/MrSnakeDoc/cellar/internal/placeholder"
	"github.com/MrSnakeDoc/cellar/internal/scanner"
)

type Options struct {
	// RestoreMissingPlaceholders turns orphaned remote objects into
	// placeholder reconstruction units instead of errors.
	RestoreMissingPlaceholders bool
	// DeleteAfterArchive schedules removal of local copies already archived.
	DeleteAfterArchive bool
	// RestoreToBucket sends restores to another bucket instead of local disk.
	RestoreToBucket bool
	// VerifyTags compares the remote path tag with the placeholder location.
	VerifyTags bool
	IndexRules []scanner.IndexRule
}

type Input struct {
	Scan                *scanner.Result
	Placeholders        placeholder.Set
	PlaceholderFindings []models.Finding
	Remote              map[string]models.RemoteObject
	Layout              placeholder.Layout
	Options             Options
}

type builder struct {
	in      Input
	plan    *Plan
	entries map[string]*Entry
	done    map[string]bool
}

// Reconcile classifies every key seen locally, in placeholders or remotely.
// It reads its input only and the result depends on nothing else.
func Reconcile(in Input) *Plan {
	b := &builder{
		in:      in,
		plan:    &Plan{},
		entries: make(map[string]*Entry),
		done:    make(map[string]bool),
	}
	b.plan.Findings = append(b.plan.Findings, in.PlaceholderFindings...)

	b.checkPlaceholders()
	b.checkCandidates()
	b.checkRemote()
	b.finish()
	return b.plan
}

func (b *builder) entry(key, assetPath string) *Entry {
	e, ok := b.entries[key]
	if !ok {
		e = &Entry{Key: key, AssetPath: assetPath}
		if size, ok := b.in.Scan.Files[assetPath]; ok {
			e.HasLocal = true
			e.LocalSize = size
		}
		b.entries[key] = e
	}
	return e
}

func (b *builder) fail(e *Entry, cat models.FindingCategory, code, reason string, paths ...string) {
	if e != nil {
		e.State = StateError
	}
	key := ""
	if e != nil {
		key = e.Key
	}
	b.plan.Findings = append(b.plan.Findings, models.Finding{
		Category: cat,
		Code:     code,
		Key:      key,
		Paths:    paths,
		Reason:   reason,
	})
}

func (b *builder) checkPlaceholders() {
	set := b.in.Placeholders
	for _, key := range set.Keys() {
		ph := set.ByKey[key]
		e := b.entry(key, ph.AssetPath)
		e.Placeholder = &ph
		b.done[key] = true

		r, ok := b.in.Remote[key]
		if !ok {
			b.fail(e, models.CategoryDrift, models.CodeMissingRemote, "missing remote object", ph.Path)
			continue
		}
		e.Remote = &r

		if !b.placeholderMatchesRemote(e, ph, r) {
			continue
		}

		if ph.Type == models.PlaceholderRestore && b.in.Scan.Occupied[ph.AssetPath] {
			b.fail(e, models.CategoryDrift, models.CodeOccupied,
				"local path is occupied by a symlink or special file", ph.AssetPath, ph.Path)
			continue
		}

		if e.HasLocal {
			if ph.Type == models.PlaceholderRestore {
				b.fail(e, models.CategoryDrift, models.CodePartialRestore,
					"local file already present, suspected partial restore", ph.AssetPath, ph.Path)
				continue
			}
			if e.LocalSize != ph.Size {
				b.fail(e, models.CategoryDrift, models.CodeSizeMismatch,
					fmt.Sprintf("local file size doesn't match archived size (local %d, placeholder %d)", e.LocalSize, ph.Size),
					ph.AssetPath, ph.Path)
				continue
			}
		}

		switch ph.Type {
		case models.PlaceholderStandard:
			if !e.HasLocal {
				e.State = StateArchived
				b.checkIndexArchived(e, ph)
				continue
			}
			e.State = StateArchivedLocalCopy
			b.plan.SafeToDelete = append(b.plan.SafeToDelete, key)
			if b.in.Options.DeleteAfterArchive {
				b.plan.LocalDeletes = append(b.plan.LocalDeletes, Unit{
					Kind:        UnitLocalDelete,
					Key:         key,
					Asset:       models.LocalAsset{Path: ph.AssetPath, Size: e.LocalSize},
					Placeholder: ph,
					Remote:      r,
				})
			}
		case models.PlaceholderRestore:
			e.State = StateRestoreRequested
			if b.in.Options.RestoreToBucket {
				e.State = StateRestoreRequestedRemote
			}
			b.plan.Restores = append(b.plan.Restores, Unit{Kind: UnitRestore, Key: key, Placeholder: ph, Remote: r})
		case models.PlaceholderDelete:
			e.State = StateDeleteRequested
			if e.HasLocal {
				e.State = StateDeleteRequestedLocalCopy
			}
			b.plan.Deletes = append(b.plan.Deletes, Unit{Kind: UnitDelete, Key: key, Placeholder: ph, Remote: r})
		}
	}
}

func (b *builder) placeholderMatchesRemote(e *Entry, ph models.Placeholder, r models.RemoteObject) bool {
	if r.Size != ph.Size {
		b.fail(e, models.CategoryDrift, models.CodeSizeMismatch,
			fmt.Sprintf("size doesn't match (placeholder %d, remote %d)", ph.Size, r.Size), ph.Path)
		return false
	}
	if r.ETag != "" && models.NormalizeETag(r.ETag) != models.NormalizeETag(ph.ETag) {
		b.fail(e, models.CategoryDrift, models.CodeETagMismatch,
			fmt.Sprintf("etag doesn't match (placeholder %s, remote %s)", ph.ETag, models.NormalizeETag(r.ETag)), ph.Path)
		return false
	}
	if b.in.Options.VerifyTags {
		if tag, ok := r.Tags[models.PathTag]; ok && tag != b.in.Layout.RelPath(ph.AssetPath) {
			b.fail(e, models.CategoryDrift, models.CodeTagMismatch,
				fmt.Sprintf("remote path tag %q disagrees with placeholder location", tag), ph.Path)
			return false
		}
	}
	return true
}

// checkIndexArchived flags an archived data file whose index stayed local untracked.
func (b *builder) checkIndexArchived(e *Entry, ph models.Placeholder) {
	rules := b.in.Options.IndexRules
	if len(rules) == 0 || !scanner.IsDataFile(ph.AssetPath, rules) {
		return
	}
	for _, idx := range scanner.IndexPaths(ph.AssetPath, rules) {
		if _, local := b.in.Scan.Files[idx]; !local {
			continue
		}
		idxKey, err := b.in.Layout.KeyFor(idx)
		if err != nil || b.in.Placeholders.IsClaimed(idxKey) {
			continue
		}
		b.fail(e, models.CategoryDrift, models.CodeIndexDrift,
			"index file not archived alongside its data file", ph.AssetPath, idx)
		return
	}
}

func (b *builder) checkCandidates() {
	for i := range b.in.Scan.Candidates {
		c := b.in.Scan.Candidates[i]
		key, err := b.in.Layout.KeyFor(c.Path)
		if err != nil {
			b.fail(nil, models.CategoryValidation, models.CodeUnmappable, err.Error(), c.Path)
			continue
		}
		if b.done[key] || b.in.Placeholders.IsClaimed(key) {
			continue
		}
		b.done[key] = true

		e := b.entry(key, c.Path)
		e.Local = &c

		// Any object at the key, empty ones included, blocks the upload.
		if r, ok := b.in.Remote[key]; ok {
			e.Remote = &r
			b.untracked(e, r)
			continue
		}
		if !placeholder.ValidValue(key) {
			b.fail(e, models.CategoryValidation, models.CodeUnencodable,
				fmt.Sprintf("key %q contains '=' or whitespace and cannot be recorded in a placeholder", key), c.Path)
			continue
		}

		e.State = StateUploadCandidate
		b.plan.Uploads = append(b.plan.Uploads, Unit{Kind: UnitUpload, Key: key, Asset: c})
	}
}

// untracked reports a local file that has a remote counterpart but no placeholder.
func (b *builder) untracked(e *Entry, r models.RemoteObject) {
	if e.LocalSize == r.Size {
		b.fail(e, models.CategoryDrift, models.CodeUntracked,
			"remote counterpart with no placeholder, partial upload or deleted placeholder", e.AssetPath)
		return
	}
	b.fail(e, models.CategoryDrift, models.CodeSizeMismatch,
		fmt.Sprintf("local file size doesn't match remote object (local %d, remote %d)", e.LocalSize, r.Size), e.AssetPath)
}

func (b *builder) checkRemote() {
	keys := make([]string, 0, len(b.in.Remote))
	for k := range b.in.Remote {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if b.done[key] || b.in.Placeholders.IsClaimed(key) {
			continue
		}
		r := b.in.Remote[key]
		asset, ok := b.in.Layout.AssetPathFor(key)
		if r.Size == 0 {
			e := b.entry(key, asset)
			e.Remote = &r
			e.State = StateRemoteMarker
			b.plan.Markers = append(b.plan.Markers, key)
			continue
		}
		if ok {
			if back, err := b.in.Layout.KeyFor(asset); err != nil || back != key {
				ok = false
			}
		}
		if !ok {
			b.fail(&Entry{Key: key}, models.CategoryValidation, models.CodeUnmappable,
				"remote key cannot be mapped to a local path")
			continue
		}

		e := b.entry(key, asset)
		e.Remote = &r
		if e.HasLocal {
			b.untracked(e, r)
			continue
		}
		if !b.in.Options.RestoreMissingPlaceholders {
			b.fail(e, models.CategoryDrift, models.CodeOrphan, "orphaned remote object with no placeholder")
			continue
		}
		if !placeholder.ValidValue(key) {
			b.fail(e, models.CategoryValidation, models.CodeUnencodable,
				fmt.Sprintf("key %q contains '=' or whitespace and cannot be recorded in a placeholder", key))
			continue
		}
		e.State = StateReconstructPlaceholder
		b.plan.Reconstructs = append(b.plan.Reconstructs, Unit{
			Kind:   UnitReconstruct,
			Key:    key,
			Asset:  models.LocalAsset{Path: asset, Size: r.Size},
			Remote: r,
		})
	}
}

func (b *builder) finish() {
	keys := make([]string, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.plan.Entries = make([]Entry, 0, len(keys))
	for _, k := range keys {
		b.plan.Entries = append(b.plan.Entries, *b.entries[k])
	}

	byKey := func(us []Unit) {
		sort.Slice(us, func(i, j int) bool { return us[i].Key < us[j].Key })
	}
	byKey(b.plan.Uploads)
	byKey(b.plan.Restores)
	byKey(b.plan.Deletes)
	byKey(b.plan.Reconstructs)
	byKey(b.plan.LocalDeletes)
	sort.Strings(b.plan.SafeToDelete)
	sort.Strings(b.plan.Markers)
	sort.SliceStable(b.plan.Findings, func(i, j int) bool {
		fi, fj := b.plan.Findings[i], b.plan.Findings[j]
		if fi.Category != fj.Category {
			return fi.Category < fj.Category
		}
		if fi.Key != fj.Key {
			return fi.Key < fj.Key
		}
		return fi.Reason < fj.Reason
	})
}

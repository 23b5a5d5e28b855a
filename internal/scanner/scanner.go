package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/MrSnakeDoc/cellar/internal/logger"
	"github.com/MrSnakeDoc/cellar/internal/models"
	"github.com/MrSnakeDoc/cellar/internal/placeholder"
)

type Mode int

const (
	ModeAllow Mode = iota
	ModeDeny
)

func (m Mode) String() string {
	if m == ModeDeny {
		return "deny"
	}
	return "allow"
}

// ParseMode accepts "allow" or "deny".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "allow":
		return ModeAllow, nil
	case "deny":
		return ModeDeny, nil
	default:
		return ModeAllow, fmt.Errorf("unknown extension mode %q (want allow or deny)", s)
	}
}

type Options struct {
	Root       string
	MinSize    int64
	MinAgeDays int

	// Extensions are matched case-insensitively against the end of the file
	// name, so multi-dot suffixes like ".vcf.gz" work. Empty matches all.
	Extensions []string
	Mode       Mode

	Layout     placeholder.Layout
	IndexRules []IndexRule
	Now        func() time.Time
}

type Skipped struct {
	Symlinks  int
	TooSmall  int
	TooYoung  int
	Excluded  int
	Irregular int
}

type Result struct {
	Candidates   []models.LocalAsset
	Placeholders []string
	Files        map[string]int64
	// Occupied holds paths taken by symlinks or other non-regular entries.
	Occupied     map[string]bool
	Partials     []string
	Skipped      Skipped
}

// Scan walks opts.Root and classifies every entry. It never modifies the tree.
func Scan(ctx context.Context, opts Options) (*Result, error) {
	root := filepath.Clean(opts.Root)
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	exts := normalizeExtensions(opts.Extensions)
	ts := now()

	fi, err := os.Lstat(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if fi.Mode()&fs.ModeSymlink != 0 {
		return nil, fmt.Errorf("scan %s: root is a symbolic link, configure the resolved directory instead", root)
	}

	res := &Result{Files: make(map[string]int64), Occupied: make(map[string]bool)}
	byPath := make(map[string]int)

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.Type()&fs.ModeSymlink != 0 {
			res.Skipped.Symlinks++
			res.Occupied[p] = true
			logger.Debug("skipping symlink %s", p)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			res.Skipped.Irregular++
			res.Occupied[p] = true
			return nil
		}

		if placeholder.IsTempPath(p) {
			res.Partials = append(res.Partials, p)
			return nil
		}
		if opts.Layout.IsPlaceholder(p) {
			res.Placeholders = append(res.Placeholders, p)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		res.Files[p] = info.Size()

		ext, allowed := matchExtension(p, exts, opts.Mode)
		switch {
		case !allowed:
			res.Skipped.Excluded++
		case info.Size() < opts.MinSize:
			res.Skipped.TooSmall++
		case ageDays(ts, info.ModTime()) < opts.MinAgeDays:
			res.Skipped.TooYoung++
		default:
			byPath[p] = len(res.Candidates)
			res.Candidates = append(res.Candidates, models.LocalAsset{
				Path:    p,
				Size:    info.Size(),
				AgeDays: ageDays(ts, info.ModTime()),
				Ext:     ext,
				ModTime: info.ModTime(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	if opts.Mode == ModeAllow && len(opts.IndexRules) > 0 {
		pairIndexes(res, byPath, opts.IndexRules, ts)
	}

	sort.Slice(res.Candidates, func(i, j int) bool { return res.Candidates[i].Path < res.Candidates[j].Path })
	sort.Strings(res.Placeholders)
	sort.Strings(res.Partials)

	logger.Debug("scan %s: %d candidate(s), %d placeholder(s), %d partial(s), skipped %+v",
		root, len(res.Candidates), len(res.Placeholders), len(res.Partials), res.Skipped)
	return res, nil
}

// pairIndexes adds co-located index files of data candidates regardless of thresholds.
func pairIndexes(res *Result, byPath map[string]int, rules []IndexRule, ts time.Time) {
	n := len(res.Candidates)
	for i := 0; i < n; i++ {
		data := res.Candidates[i]
		if !IsDataFile(data.Path, rules) {
			continue
		}
		for _, idx := range existingIndexes(data.Path, rules) {
			if j, ok := byPath[idx.path]; ok {
				res.Candidates[j].IndexOf = data.Path
				continue
			}
			byPath[idx.path] = len(res.Candidates)
			res.Candidates = append(res.Candidates, models.LocalAsset{
				Path:    idx.path,
				Size:    idx.info.Size(),
				AgeDays: ageDays(ts, idx.info.ModTime()),
				Ext:     strings.ToLower(filepath.Ext(idx.path)),
				ModTime: idx.info.ModTime(),
				IndexOf: data.Path,
			})
		}
	}
}

func normalizeExtensions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	// Longest first so ".vcf.gz" wins over ".gz".
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// matchExtension returns the matched extension and whether the mode lets the file through.
func matchExtension(p string, exts []string, mode Mode) (string, bool) {
	name := strings.ToLower(filepath.Base(p))
	matched := ""
	for _, e := range exts {
		if strings.HasSuffix(name, e) && len(name) > len(e) {
			matched = e
			break
		}
	}
	if matched == "" {
		matched = filepath.Ext(name)
	}

	if len(exts) == 0 {
		return matched, true
	}
	hit := false
	for _, e := range exts {
		if e == matched {
			hit = true
			break
		}
	}
	if mode == ModeDeny {
		return matched, !hit
	}
	return matched, hit
}

func ageDays(now, mtime time.Time) int {
	d := now.Sub(mtime)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

package placeholder

import (
	"errors"
	"sort"

	"github.com/MrSnakeDoc/cellar/internal/models"
)

// Set is the parsed placeholder population of one run.
type Set struct {
	ByKey map[string]models.Placeholder

	// Claimed lists keys referenced by placeholders that were rejected
	// (duplicates, path mismatches). They are never reported as orphans.
	Claimed map[string][]string
}

func (s Set) Get(key string) (models.Placeholder, bool) {
	ph, ok := s.ByKey[key]
	return ph, ok
}

// Keys returns the accepted keys in sorted order.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s.ByKey))
	for k := range s.ByKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s Set) IsClaimed(key string) bool {
	if _, ok := s.ByKey[key]; ok {
		return true
	}
	_, ok := s.Claimed[key]
	return ok
}

// LoadAll parses every placeholder and reports all problems in one pass.
// Duplicate keys are reported with every file involved and none of them is kept.
func LoadAll(paths []string, l Layout) (Set, []models.Finding) {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	set := Set{
		ByKey:   make(map[string]models.Placeholder),
		Claimed: make(map[string][]string),
	}
	var findings []models.Finding
	byKey := make(map[string][]models.Placeholder)

	for _, p := range sorted {
		ph, err := Parse(p, l)
		if err != nil {
			findings = append(findings, parseFinding(p, err))
			var pe *ParseError
			if errors.As(err, &pe) && pe.Key != "" {
				set.Claimed[pe.Key] = append(set.Claimed[pe.Key], p)
			}
			continue
		}
		byKey[ph.Key] = append(byKey[ph.Key], ph)
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		group := byKey[k]
		if len(group) == 1 {
			set.ByKey[k] = group[0]
			continue
		}
		files := make([]string, 0, len(group))
		for _, ph := range group {
			files = append(files, ph.Path)
		}
		set.Claimed[k] = append(set.Claimed[k], files...)
		findings = append(findings, models.Finding{
			Category: models.CategoryValidation,
			Code:     models.CodeDuplicate,
			Key:      k,
			Paths:    files,
			Reason:   "duplicate placeholders for the same key",
		})
	}

	return set, findings
}

func parseFinding(p string, err error) models.Finding {
	f := models.Finding{
		Category: models.CategoryValidation,
		Code:     models.CodeMalformed,
		Paths:    []string{p},
		Reason:   err.Error(),
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		f.Key = pe.Key
		f.Reason = pe.Reason
		switch pe.Kind {
		case KindMissingAttribute:
			f.Code = models.CodeMissingAttribute
		case KindPathMismatch:
			f.Category = models.CategoryDrift
			f.Code = models.CodePathMismatch
		}
	}
	return f
}

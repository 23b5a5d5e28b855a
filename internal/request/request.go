package request

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/MrSnakeDoc/cellar/internal/logger"
	"github.com/MrSnakeDoc/cellar/internal/models"
	"github.com/MrSnakeDoc/cellar/internal/placeholder"
	"github.com/MrSnakeDoc/cellar/internal/utils"
)

var ErrNoPlaceholder = errors.New("no placeholder found")

// Marker flips placeholders between STANDARD, RESTORE and DELETE. The next
// sync acts on the new type.
type Marker struct {
	Layout placeholder.Layout
}

func New(l placeholder.Layout) *Marker {
	return &Marker{Layout: l}
}

// Execute marks every target. A target is either the archived file path or
// one of its placeholder paths. All targets are attempted; errors are joined.
func (m *Marker) Execute(targets []string, t models.PlaceholderType) ([]models.Placeholder, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("no path provided, please specify at least one archived file")
	}

	var (
		marked []models.Placeholder
		errs   []error
	)
	for _, target := range targets {
		ph, err := m.mark(target, t)
		if err != nil {
			logger.LogError("%s: %v", target, err)
			errs = append(errs, fmt.Errorf("%s: %w", target, err))
			continue
		}
		marked = append(marked, ph)
	}
	return marked, errors.Join(errs...)
}

func (m *Marker) mark(target string, t models.PlaceholderType) (models.Placeholder, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return models.Placeholder{}, err
	}
	asset := abs
	if _, a, ok := m.Layout.TypeOf(abs); ok {
		asset = a
	}

	p, err := m.find(asset)
	if err != nil {
		return models.Placeholder{}, err
	}
	ph, err := placeholder.Parse(p, m.Layout)
	if err != nil {
		return models.Placeholder{}, err
	}
	if ph.Type == t {
		logger.Info("%s already marked %s", m.Layout.RelPath(asset), t)
		return ph, nil
	}

	out, err := placeholder.Rename(ph, t, m.Layout)
	if err != nil {
		return ph, err
	}
	logger.Success("%s: %s -> %s", m.Layout.RelPath(asset), ph.Type, t)
	return out, nil
}

// find returns the single placeholder standing in for asset.
func (m *Marker) find(asset string) (string, error) {
	var found []string
	for _, t := range []models.PlaceholderType{models.PlaceholderStandard, models.PlaceholderRestore, models.PlaceholderDelete} {
		p := m.Layout.PlaceholderPath(asset, t)
		ok, err := utils.FileExists(p)
		if err != nil {
			return "", err
		}
		if ok {
			found = append(found, p)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w for %s", ErrNoPlaceholder, asset)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("several placeholders stand in for %s: %v", asset, found)
	}
}

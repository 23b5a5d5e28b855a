package status

import (
	"fmt"
	"io"

	"github.com/MrSnakeDoc/cellar/internal/printer"
	"github.com/MrSnakeDoc/cellar/internal/reconcile"
	"github.com/MrSnakeDoc/cellar/internal/utils"
)

// row is a view model for rendering.
type row struct {
	Key    string
	State  reconcile.State
	Size   int64
	Local  string
	Remote string
}

// Lister renders the per-key view of a plan.
type Lister struct {
	Out     io.Writer
	Printer *printer.ColorPrinter
}

func New(out io.Writer, colored bool) *Lister {
	return &Lister{Out: out, Printer: printer.NewColorPrinter(colored)}
}

// Execute renders one row per key, optionally restricted to the named states.
// Problem rows sort first, then pending work, then settled keys.
func (l *Lister) Execute(plan *reconcile.Plan, only []string) error {
	entries := plan.Entries
	if len(only) > 0 {
		want := make(map[string]bool, len(only))
		for _, s := range only {
			want[s] = true
		}
		entries = utils.Filter(entries, func(e reconcile.Entry) bool { return want[e.State.String()] })
	}

	rows := utils.Map(entries, func(e reconcile.Entry) row {
		r := row{Key: e.Key, State: e.State, Size: e.LocalSize, Local: "-", Remote: "-"}
		if e.HasLocal {
			r.Local = "file"
		}
		if e.Placeholder != nil {
			r.Local = e.Placeholder.Type.String()
			r.Size = e.Placeholder.Size
		}
		if e.Remote != nil {
			r.Remote = e.Remote.StorageClass
			if r.Remote == "" {
				r.Remote = "present"
			}
			r.Size = e.Remote.Size
		}
		return r
	})
	utils.SortByRankAndKey(rows, func(r row) int { return rank(r.State) }, func(r row) string { return r.Key })

	table := utils.NewTable(l.Out, []string{"Key", "State", "Size", "Local", "Remote"})
	for _, r := range rows {
		if err := table.Append([]string{r.Key, l.prettyState(r.State), utils.HumanSize(r.Size), r.Local, r.Remote}); err != nil {
			return fmt.Errorf("an error occurred while appending to the table: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("an error occurred while rendering the table: %w", err)
	}

	total := utils.Sum(rows, func(r row) int64 { return r.Size })
	_, err := fmt.Fprintf(l.Out, "%d key(s), %s%s\n", len(rows), utils.HumanSize(total), summary(rows))
	for _, f := range plan.Findings {
		if err != nil {
			break
		}
		_, err = fmt.Fprintln(l.Out, l.Printer.Error("%s", f))
	}
	return err
}

func summary(rows []row) string {
	counts := map[string]int{}
	for _, r := range rows {
		counts[r.State.String()]++
	}
	out := ""
	for _, n := range utils.SortedKeys(counts) {
		out += fmt.Sprintf(", %s=%d", n, counts[n])
	}
	return out
}

func rank(s reconcile.State) int {
	switch s {
	case reconcile.StateError:
		return 0
	case reconcile.StateArchived, reconcile.StateRemoteMarker:
		return 2
	default:
		return 1
	}
}

// prettyState colors only the UI label, not the sorting value.
func (l *Lister) prettyState(s reconcile.State) string {
	switch rank(s) {
	case 0:
		return l.Printer.Error("%s", s)
	case 2:
		return l.Printer.Success("%s", s)
	default:
		return l.Printer.Warning("%s", s)
	}
}

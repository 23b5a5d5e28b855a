package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/cellar/internal/utils"
)

type Format string

const (
	FormatTable Format = "table"
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want table, text, json or yaml)", s)
	}
}

type section struct {
	title string
	items []Item
}

func (r *Report) sections() []section {
	return []section{
		{"Validation errors", r.Validation},
		{"Drifted", r.Drifted},
		{"Orphaned remote objects", r.Orphaned},
		{"Already archived, local copy safe to delete", r.AlreadyArchived},
		{"Ready to upload", r.ReadyToUpload},
		{"Ready to restore", r.ReadyToRestore},
		{"Ready to delete", r.ReadyToDelete},
		{"Ready to reconstruct", r.ReadyToReconstruct},
		{"Restore pending", r.RestorePending},
		{"Failures", r.Failures},
	}
}

// Render writes the report in format f.
func (r *Report) Render(w io.Writer, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case FormatText:
		return r.renderText(w)
	default:
		return r.renderTable(w)
	}
}

func (r *Report) verdict() string {
	switch {
	case r.Rejected:
		return "REJECTED (nothing was executed)"
	case r.Error != "":
		return "FAILED"
	case r.DryRun:
		return "DRY RUN (nothing was executed)"
	case r.Success:
		return "SUCCESS"
	default:
		return "FAILED"
	}
}

func (r *Report) summaryLines() []string {
	c := r.Counts
	lines := []string{
		fmt.Sprintf("run %s on %s -> %s: %s", r.RunID, r.Root, r.Bucket, r.verdict()),
		fmt.Sprintf("uploaded %d, restored %d, deleted %d, reconstructed %d, local copies removed %d, skipped %d, failed %d",
			c.Uploaded, c.Restored, c.Deleted, c.Reconstructed, c.LocalDeleted, c.Skipped, c.Failed),
		fmt.Sprintf("restore requests placed %d, restores pending %d, bytes moved %s",
			c.RestoresRequested, c.RestoresPending, utils.HumanSize(r.BytesMoved)),
	}
	if r.Error != "" {
		lines = append(lines, "error: "+r.Error)
	}
	return lines
}

// renderText is plain output suitable for mail or log forwarding.
func (r *Report) renderText(w io.Writer) error {
	var b strings.Builder
	for _, line := range r.summaryLines() {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	for _, s := range r.sections() {
		if len(s.items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%d):\n", s.title, len(s.items))
		for _, it := range s.items {
			b.WriteString("  - ")
			b.WriteString(it.Key)
			if it.Reason != "" {
				b.WriteString(": ")
				b.WriteString(it.Reason)
			}
			if len(it.Paths) > 0 {
				fmt.Fprintf(&b, " [%s]", strings.Join(it.Paths, ", "))
			}
			b.WriteByte('\n')
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Report) renderTable(w io.Writer) error {
	for _, line := range r.summaryLines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	for _, s := range r.sections() {
		if len(s.items) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "\n%s (%d)\n", s.title, len(s.items)); err != nil {
			return err
		}
		t := utils.NewTable(w, []string{"Key", "Reason", "Paths"})
		for _, it := range s.items {
			if err := t.Append([]string{it.Key, it.Reason, strings.Join(it.Paths, "\n")}); err != nil {
				return err
			}
		}
		if err := t.Render(); err != nil {
			return err
		}
	}
	return nil
}

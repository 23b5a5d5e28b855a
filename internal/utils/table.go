package utils

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// NewTable returns a table with headers set, rendering to w.
func NewTable(w io.Writer, headers []string) *tablewriter.Table {
	t := tablewriter.NewTable(w)
	t.Header(headers)
	return t
}

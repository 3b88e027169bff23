package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	dupegraph "github.com/mattkeenan/dupegraph/pkg"
)

const hashDisplayLength = 16

// renderDuplicates prints one row per duplicated path, grouped under a
// truncated content hash shown only on the group's first row.
func renderDuplicates(w io.Writer, groups []dupegraph.DuplicateGroup) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "No duplicates found.")
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)

	tw.AppendHeader(table.Row{"Hash", "Count", "Path"})
	for _, group := range groups {
		hash := group.Hash
		if len(hash) > hashDisplayLength {
			hash = hash[:hashDisplayLength] + "…"
		}
		for i, file := range group.Files {
			if i == 0 {
				tw.AppendRow(table.Row{hash, group.Count, file})
			} else {
				tw.AppendRow(table.Row{"", "", file})
			}
		}
		tw.AppendSeparator()
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
	})

	tw.Render()
}

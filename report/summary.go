/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package report renders the outcome of a link enforcement run as a
// markdown job summary.
package report

import (
	"fmt"
	"io"
	"strings"

	"chainguard.dev/workitemlink/workitem"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// Check states for a row.
const (
	NotChecked = "-"
	Yes        = "✅"
	No         = "❌"
)

// Row is one work item referenced by the pull request.
type Row struct {
	Reference workitem.Reference
	// Exists and Linked hold Yes, No or NotChecked.
	Exists string
	Linked string
}

// Source describes where the reference was first seen.
func (r Row) Source() string {
	if r.Reference.FromCommit() {
		return "commit " + r.Reference.Commit.ShortSHA()
	}
	return "PR title/body"
}

// StepSummary renders a heading, a table of rows and any failure messages.
func StepSummary(pr int, rows []Row, failures []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### Azure Boards work items for pull request #%d\n\n", pr)

	if len(rows) == 0 {
		sb.WriteString("No work item references found.\n")
	} else {
		table := newRowTable(&sb)
		for _, r := range rows {
			_ = table.Append([]string{"`" + r.Reference.String() + "`", r.Source(), state(r.Exists), state(r.Linked)})
		}
		_ = table.Render()
	}

	if len(failures) > 0 {
		sb.WriteString("\n#### Failures\n\n")
		for _, f := range failures {
			// Comment bodies span lines; keep only the lead sentence here.
			line, _, _ := strings.Cut(f, "\n")
			fmt.Fprintf(&sb, "- %s\n", line)
		}
	}
	return sb.String()
}

func state(s string) string {
	if s == "" {
		return NotChecked
	}
	return s
}

var columns = []string{"Work item", "Source", "Exists", "Linked"}

// newRowTable writes a markdown table of Rows to w. The state columns are
// centered; headers are kept verbatim.
func newRowTable(w io.Writer) *tablewriter.Table {
	align := tw.CellAlignment{
		Global:    tw.AlignLeft,
		PerColumn: []tw.Align{tw.AlignLeft, tw.AlignLeft, tw.AlignCenter, tw.AlignCenter},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment:  align,
				Formatting: tw.CellFormatting{AutoFormat: tw.Off},
			},
			Row:      tw.CellConfig{Alignment: align},
			Behavior: tw.Behavior{TrimSpace: tw.Off},
		}),
		tablewriter.WithHeader(columns),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{Left: tw.On, Right: tw.On, Top: tw.Off, Bottom: tw.Off},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

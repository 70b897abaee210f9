package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"winnow/internal/dupe"
	"winnow/internal/merge"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type jsonFile struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	Created time.Time `json:"created"`
}

type jsonGroup struct {
	Kept       string     `json:"kept"`
	Wasted     int64      `json:"wasted_bytes"`
	Duplicates []jsonFile `json:"duplicates"`
}

func groupsJSON(groups []dupe.Group) []jsonGroup {
	out := make([]jsonGroup, 0, len(groups))
	for _, g := range groups {
		jg := jsonGroup{Kept: g.Representative().Path, Wasted: g.WastedBytes()}
		for _, f := range g.Duplicates() {
			jg.Duplicates = append(jg.Duplicates, jsonFile{Path: f.Path, Size: f.Size, Created: f.Created})
		}
		out = append(out, jg)
	}
	return out
}

func renderGroups(cmd *cobra.Command, groups []dupe.Group) {
	out := cmd.OutOrStdout()
	if len(groups) == 0 {
		fmt.Fprintln(out, "No duplicates found")
		return
	}

	rows := make([][]string, 0, len(groups))
	var wasted int64
	for i, g := range groups {
		wasted += g.WastedBytes()
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d", len(g.Files)),
			humanize.IBytes(uint64(g.WastedBytes())),
			g.Representative().Path,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Files", "Wasted", "Kept"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignLeft},
	))
	fmt.Fprintf(out, "%d groups, %s reclaimable\n", len(groups), humanize.IBytes(uint64(wasted)))
}

func renderMergeResult(cmd *cobra.Command, result merge.Result, dryRun bool) {
	out := cmd.OutOrStdout()
	rows := [][]string{
		{"Merged", fmt.Sprintf("%d", result.Stats.Merged)},
		{"Duplicates", fmt.Sprintf("%d", result.Stats.Duplicates)},
		{"Renamed", fmt.Sprintf("%d", result.Stats.Renamed)},
		{"Errors", fmt.Sprintf("%d", result.Stats.Errors)},
	}
	fmt.Fprintln(out, renderTable([]string{"Outcome", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	if dryRun {
		fmt.Fprintln(out, "Dry run: no files were changed")
	}
}

package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"photodup/internal/config"
	"photodup/internal/dedup"
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
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func renderKeyValues(rows [][]string) string {
	return renderTable([]string{"Setting", "Value"}, rows, nil)
}

func sessionRows(sessions []*dedup.ScanSession, now time.Time) [][]string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			s.ID,
			s.BackupRoot,
			s.SortedRoot,
			humanize.Comma(s.PairCount),
			humanize.RelTime(s.CreatedAt, now, "ago", "from now"),
		})
	}
	return rows
}

func entryRows(entries []*dedup.ReviewEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		status := string(e.Disposition)
		if e.Action != "" && e.Action != status {
			status += " (" + e.Action + ")"
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.BackupPath,
			e.SortedPath,
			status,
		})
	}
	return rows
}

func statsRows(st *dedup.ReviewStats) [][]string {
	return [][]string{
		{"Total", humanize.Comma(st.Total)},
		{"Reviewed", humanize.Comma(st.Reviewed)},
		{"Remaining", humanize.Comma(st.Remaining)},
		{"Deleted", humanize.Comma(st.Deleted)},
		{"Ignored", humanize.Comma(st.Ignored)},
		{"Completed", strconv.FormatBool(st.Completed)},
	}
}

func configRows(cfg *config.Config) [][]string {
	remote := cfg.Remote.Type
	if cfg.Remote.Type == "ssh" {
		remote = fmt.Sprintf("ssh %s@%s", cfg.Remote.User, cfg.Remote.Address())
	}
	origins := strings.Join(cfg.Server.AllowedOrigins, ", ")
	return [][]string{
		{"Base Dir", cfg.BaseDir},
		{"Log Dir", cfg.LogDir},
		{"Remote", remote},
		{"Password File", cfg.Remote.PasswordFile},
		{"Command Timeout", cfg.Remote.CommandTimeout().String()},
		{"Database", cfg.Database.Type + " " + cfg.Database.DataDir},
		{"Thumbnail Generator", cfg.Thumbnails.Generator},
		{"Thumbnail Store", cfg.Thumbnails.Store.Type},
		{"Backup Root", cfg.Review.BackupRoot},
		{"Sorted Root", cfg.Review.SortedRoot},
		{"Listen", cfg.Server.Listen},
		{"Allowed Origins", origins},
	}
}

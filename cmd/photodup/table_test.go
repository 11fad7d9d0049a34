package main

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"photodup/internal/config"
	"photodup/internal/dedup"
)

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"ID", "Path"}, [][]string{{"1", "/volume1/backup/a.jpg"}, {"2"}}, []columnAlignment{alignRight})

	for _, want := range []string{"ID", "PATH", "/volume1/backup/a.jpg"} {
		if !strings.Contains(strings.ToUpper(out), strings.ToUpper(want)) {
			t.Errorf("renderTable() missing %q in:\n%s", want, out)
		}
	}
	if got := renderTable(nil, nil, nil); got != "" {
		t.Errorf("renderTable(no columns) = %q, want empty", got)
	}
}

func TestEntryRows(t *testing.T) {
	entries := []*dedup.ReviewEntry{
		{ID: 7, BackupPath: "/b/IMG_1.jpg", SortedPath: "/s/IMG_1.jpg", Disposition: dedup.DispositionPending},
		{ID: 8, BackupPath: "/b/IMG_2.jpg", SortedPath: "/s/IMG_2.jpg", Disposition: dedup.DispositionIgnored, Action: dedup.ActionAutoIgnored},
		{ID: 9, BackupPath: "/b/IMG_3.jpg", SortedPath: "/s/IMG_3.jpg", Disposition: dedup.DispositionDeleted, Action: dedup.ActionDeleted},
	}

	got := entryRows(entries)
	want := [][]string{
		{"7", "/b/IMG_1.jpg", "/s/IMG_1.jpg", "pending"},
		{"8", "/b/IMG_2.jpg", "/s/IMG_2.jpg", "ignored (auto-ignored)"},
		{"9", "/b/IMG_3.jpg", "/s/IMG_3.jpg", "deleted"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("entryRows() = %v, want %v", got, want)
	}
}

func TestSessionRows(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	sessions := []*dedup.ScanSession{{
		ID:         "s1",
		BackupRoot: "/volume1/backup",
		SortedRoot: "/volume1/photo",
		PairCount:  1234,
		CreatedAt:  now.Add(-2 * time.Hour),
	}}

	got := sessionRows(sessions, now)
	if len(got) != 1 {
		t.Fatalf("len(sessionRows()) = %d, want 1", len(got))
	}
	if got[0][3] != "1,234" {
		t.Errorf("pairs column = %q, want 1,234", got[0][3])
	}
	if got[0][4] != "2 hours ago" {
		t.Errorf("created column = %q, want %q", got[0][4], "2 hours ago")
	}
}

func TestConfigRows(t *testing.T) {
	cfg := config.NewConfig("/data/photodup")
	cfg.Remote.Host = "nas"
	cfg.Remote.User = "admin"

	rows := configRows(cfg)
	found := false
	for _, r := range rows {
		if r[0] == "Remote" {
			found = true
			if r[1] != "ssh admin@nas:22" {
				t.Errorf("Remote = %q, want %q", r[1], "ssh admin@nas:22")
			}
		}
	}
	if !found {
		t.Error("configRows() has no Remote row")
	}
}

func TestParseEntryID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseEntryID(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseEntryID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseEntryID(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestPluralize(t *testing.T) {
	if got := pluralize("pair", 1); got != "1 pair" {
		t.Errorf("pluralize(1) = %q", got)
	}
	if got := pluralize("pair", 2500); got != "2,500 pairs" {
		t.Errorf("pluralize(2500) = %q", got)
	}
}

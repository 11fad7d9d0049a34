package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"photodup/internal/dedup"
)

var scanCmd = &cobra.Command{
	Use:   "scan [BACKUP_ROOT SORTED_ROOT]",
	Short: "Scan for backup files already present in the sorted library",
	Args:  cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), "scan")
		if err != nil {
			return err
		}
		defer func() { closeApp(a, err) }()

		var backupRoot, sortedRoot string
		if len(args) > 0 {
			backupRoot = args[0]
		}
		if len(args) > 1 {
			sortedRoot = args[1]
		}
		backupRoot, sortedRoot, err = a.ResolveRoots(backupRoot, sortedRoot)
		if err != nil {
			return err
		}
		sessionID, _ := cmd.Flags().GetString("session")

		start := time.Now()
		pairs, err := a.Service().Scan(cmd.Context(), backupRoot, sortedRoot)
		if err != nil {
			return fmt.Errorf("scanning: %w", err)
		}
		session, err := a.Service().CreateSession(backupRoot, sortedRoot, pairs, sessionID)
		if err != nil {
			return fmt.Errorf("saving session: %w", err)
		}

		fmt.Printf("Session %s: %s to review (%s candidates) in %s\n",
			session.ID,
			pluralize("pair", session.PairCount),
			humanize.Comma(int64(len(pairs))),
			time.Since(start).Round(time.Millisecond))
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List scan sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), "sessions")
		if err != nil {
			return err
		}
		defer func() { closeApp(a, err) }()

		sessions, err := a.Service().ListSessions()
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No scan sessions.")
			return nil
		}

		fmt.Println(renderTable(
			[]string{"ID", "Backup", "Sorted", "Pairs", "Created"},
			sessionRows(sessions, time.Now()),
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
		))
		return nil
	},
}

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "List review entries of a session",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		sessionID, _ := cmd.Flags().GetString("session")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		all, _ := cmd.Flags().GetBool("all")

		a, err := newApp(cmd.Context(), "entries")
		if err != nil {
			return err
		}
		defer func() { closeApp(a, err) }()

		entries, err := a.Service().ListEntries(dedup.ListOptions{
			SessionID:       sessionID,
			Limit:           limit,
			Offset:          offset,
			IncludeReviewed: all,
		})
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("Nothing to review.")
			return nil
		}

		fmt.Println(renderTable(
			[]string{"ID", "Backup", "Sorted", "Status"},
			entryRows(entries),
			[]columnAlignment{alignRight},
		))
		return nil
	},
}

var ignoreCmd = &cobra.Command{
	Use:   "ignore ENTRY_ID",
	Short: "Keep both files and never report the pair again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		id, err := parseEntryID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "ignore")
		if err != nil {
			return err
		}
		defer func() { closeApp(a, err) }()

		entry, err := a.Service().Ignore(id, "", "")
		if err != nil {
			return err
		}
		fmt.Printf("Ignored %s\n", entry.BackupPath)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete ENTRY_ID",
	Short: "Move the backup copy into the share's recycle bin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		id, err := parseEntryID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "delete")
		if err != nil {
			return err
		}
		defer func() { closeApp(a, err) }()

		record, err := a.Service().Delete(cmd.Context(), id, "", "")
		if err != nil {
			return err
		}
		fmt.Printf("Moved %s to %s\n", record.OriginalLocation, record.RecycleLocation)
		return nil
	},
}

var undoCmd = &cobra.Command{
	Use:   "undo SESSION_ID",
	Short: "Restore the most recent delete of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), "undo")
		if err != nil {
			return err
		}
		defer func() { closeApp(a, err) }()

		record, err := a.Service().Undo(cmd.Context(), args[0])
		if dedup.IsNothingToUndo(err) {
			fmt.Println("Nothing to undo.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("Restored %s\n", record.OriginalLocation)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats SESSION_ID",
	Short: "Show review progress of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), "stats")
		if err != nil {
			return err
		}
		defer func() { closeApp(a, err) }()

		st, err := a.Service().Stats(args[0])
		if err != nil {
			return err
		}
		fmt.Println(renderTable([]string{"", "Entries"}, statsRows(st), []columnAlignment{alignLeft, alignRight}))
		return nil
	},
}

func parseEntryID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid entry id %q", s)
	}
	return id, nil
}

func pluralize(noun string, n int64) string {
	if n == 1 {
		return "1 " + noun
	}
	return humanize.Comma(n) + " " + noun + "s"
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().String("session", "", "Session id to use instead of a generated one")
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(entriesCmd)
	entriesCmd.Flags().StringP("session", "s", "", "Session id (default: most recent)")
	entriesCmd.Flags().IntP("limit", "n", 50, "Maximum number of entries to show")
	entriesCmd.Flags().Int("offset", 0, "Entries to skip")
	entriesCmd.Flags().BoolP("all", "a", false, "Include reviewed entries")
	rootCmd.AddCommand(ignoreCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(statsCmd)
}

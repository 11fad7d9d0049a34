package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var thumbCmd = &cobra.Command{
	Use:   "thumb REMOTE_PATH",
	Short: "Write a JPEG preview of a NAS file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		size, _ := cmd.Flags().GetInt("size")
		out, _ := cmd.Flags().GetString("output")

		a, err := newApp(cmd.Context(), "thumb")
		if err != nil {
			return err
		}
		defer func() { closeApp(a, err) }()

		data, err := a.Thumbnails().Get(cmd.Context(), args[0], size)
		if err != nil {
			return err
		}
		if out == "" || out == "-" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(out, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s (%s)\n", out, humanize.Bytes(uint64(len(data))))
		return nil
	},
}

var thumbsCmd = &cobra.Command{
	Use:   "thumbs",
	Short: "Manage the thumbnail cache",
}

var thumbsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many previews are cached",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), "thumbs-stats")
		if err != nil {
			return err
		}
		defer func() { closeApp(a, err) }()

		count, total, err := a.ThumbnailStats()
		if err != nil {
			return err
		}
		fmt.Println(renderKeyValues([][]string{
			{"Store", a.Config().Thumbnails.Store.Type},
			{"Thumbnails", humanize.Comma(count)},
			{"Total Size", humanize.Bytes(uint64(total))},
		}))
		return nil
	},
}

// state command
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Manage the review database",
}

var stateBackupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Write a consistent copy of the review database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), "state-backup")
		if err != nil {
			return err
		}
		defer func() { closeApp(a, err) }()

		if err := a.BackupState(args[0]); err != nil {
			return err
		}
		fmt.Printf("Database copied to %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(thumbCmd)
	thumbCmd.Flags().Int("size", 0, "Longest edge in pixels (default: thumbnails.max_size)")
	thumbCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	thumbsCmd.AddCommand(thumbsStatsCmd)
	rootCmd.AddCommand(thumbsCmd)
	stateCmd.AddCommand(stateBackupCmd)
	rootCmd.AddCommand(stateCmd)
}

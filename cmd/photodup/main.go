package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"photodup/internal/app"
	"photodup/internal/config"
	"photodup/internal/secrets"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var debug bool

// newApp reads the config and creates an App. The caller must defer closeApp.
// operation identifies the CLI command being run (e.g. "scan", "serve").
func newApp(ctx context.Context, operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.New(ctx, cfg, operation, app.Options{
		Passphrase: terminalPrompt("Passphrase: "),
		Debug:      debug,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// closeApp records the command's outcome and releases the App.
func closeApp(a *app.App, err error) {
	a.Finish(err)
	if cerr := a.Close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", cerr)
	}
}

var rootCmd = &cobra.Command{
	Use:   "photodup",
	Short: "Review duplicate photos between a NAS backup folder and a sorted library",
	Long: `photodup finds files in a backup folder whose name also appears in a
sorted photo library on a NAS, and lets you delete the backup copy into the
share's recycle bin or ignore the pair for good.

Files are matched by name only, ignoring case. Two unrelated photos called
IMG_0001.JPG are reported as a pair, and a name found several times on both
sides produces every combination. Check the previews before deleting.`,
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		cfg.Remote.Host, _ = cmd.Flags().GetString("host")
		cfg.Remote.User, _ = cmd.Flags().GetString("user")
		cfg.Review.BackupRoot, _ = cmd.Flags().GetString("backup-root")
		cfg.Review.SortedRoot, _ = cmd.Flags().GetString("sorted-root")

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Println(renderKeyValues(configRows(cfg)))
		return nil
	},
}

var configSecretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Store the NAS SSH password, sealed with a passphrase",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		if cfg.Remote.PasswordFile == "" {
			cfg.Remote.PasswordFile = filepath.Join(cfg.BaseDir, "nas-password.age")
		}

		password, err := readSecret("NAS password: ")
		if err != nil {
			return err
		}
		passphrase, err := readSecret("New passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readSecret("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := secrets.NewAgeCredentialFile(cfg.Remote.PasswordFile).Seal(passphrase, password); err != nil {
			return fmt.Errorf("sealing password: %w", err)
		}
		if err := config.Save(defaults["config_path"], cfg); err != nil {
			return err
		}

		fmt.Printf("Password sealed to %s\n", cfg.Remote.PasswordFile)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log debug output")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("host", "", "NAS host name")
	configInitCmd.Flags().String("user", "", "NAS SSH user")
	configInitCmd.Flags().String("backup-root", "", "Default backup folder")
	configInitCmd.Flags().String("sorted-root", "", "Default sorted library folder")
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configSecretCmd)

	rootCmd.AddCommand(configCmd)
}

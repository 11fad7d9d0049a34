package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"photodup/internal/api"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the review API for the web UI",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		a, err := newApp(ctx, "serve")
		if err != nil {
			return err
		}
		defer func() { closeApp(a, err) }()

		if err := a.ValidateThumbnailStore(ctx); err != nil {
			return err
		}

		cfg := a.Config()
		listen := cfg.Server.Listen
		if flag, _ := cmd.Flags().GetString("listen"); flag != "" {
			listen = flag
		}

		srv := api.NewServer(api.Dependencies{
			Service:           a.Service(),
			Thumbnails:        a.Thumbnails(),
			Browser:           a.Browser(),
			Logger:            a.Logger(),
			AllowedOrigins:    cfg.Server.AllowedOrigins,
			DefaultBackupRoot: cfg.Review.BackupRoot,
			DefaultSortedRoot: cfg.Review.SortedRoot,
		})
		httpServer := &http.Server{
			Addr:              listen,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- httpServer.ListenAndServe()
		}()
		a.Logger().Info("api listening", "addr", listen)
		fmt.Printf("Listening on http://%s\n", listen)

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("serving: %w", err)
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		a.Logger().Info("api stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "Listen address (default: server.listen)")
}

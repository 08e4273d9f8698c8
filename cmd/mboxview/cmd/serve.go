package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dan5py/mbox-viewer-sub001/internal/api"
	"github.com/dan5py/mbox-viewer-sub001/internal/rangeio"
	"github.com/dan5py/mbox-viewer-sub001/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve [archive.mbox ...]",
	Short: "Serve the JSON API, optionally pre-opening archives",
	RunE: func(cmd *cobra.Command, args []string) error {
		st := store.New(store.Options{
			CacheMaxEntries: cfg.Cache.MaxEntries,
			MaxLineBytes:    cfg.Index.MaxLineBytes,
			Logger:          logger,
		})
		for _, path := range args {
			reader, err := rangeio.OpenFile(path)
			if err != nil {
				return err
			}
			f, err := st.AddFile(path, path, "mbox", reader)
			if err != nil {
				reader.Close()
				return err
			}
			logger.Info("opened archive", "id", f.ID, "name", f.DisplayName, "messages", f.MessageCount())
		}

		srv := api.NewServer(cfg, st, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown", "error", err)
			}
		}()

		return srv.Start()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// Package cmd implements the mboxview command line interface.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dan5py/mbox-viewer-sub001/internal/archive"
	"github.com/dan5py/mbox-viewer-sub001/internal/config"
	"github.com/dan5py/mbox-viewer-sub001/internal/rangeio"
	"github.com/dan5py/mbox-viewer-sub001/internal/store"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mboxview",
	Short: "Browse, search, and export messages from mbox archives",
	Long: `mboxview opens large mbox mail archives without loading them into
memory: messages are located by a single indexing pass and decoded lazily
on access, with a gmail-style query language for searching.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(logger)

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.mboxview/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// openArchive indexes an archive path into a fresh store. Zip containers
// are extracted first; when one holds several mailboxes, all are opened and
// the first is returned. CLI invocations are single-shot, so every command
// builds its own store.
func openArchive(path string) (*store.Store, *store.MailFile, error) {
	cacheDir := filepath.Join(cfg.HomeDir, "extracted")
	paths, err := archive.Resolve(path, cacheDir, logger)
	if err != nil {
		return nil, nil, err
	}

	st := store.New(store.Options{
		CacheMaxEntries: cfg.Cache.MaxEntries,
		MaxLineBytes:    cfg.Index.MaxLineBytes,
		Logger:          logger,
	})
	var first *store.MailFile
	for _, p := range paths {
		reader, err := rangeio.OpenFile(p)
		if err != nil {
			return nil, nil, err
		}
		f, err := st.AddFile(filepath.Base(p), p, "mbox", reader)
		if err != nil {
			reader.Close()
			return nil, nil, err
		}
		if first == nil {
			first = f
		}
	}
	if len(paths) > 1 {
		logger.Info("archive contains multiple mailboxes", "count", len(paths), "showing", first.DisplayName)
	}
	return st, first, nil
}

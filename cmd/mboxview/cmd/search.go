package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dan5py/mbox-viewer-sub001/internal/rangeio"
	"github.com/dan5py/mbox-viewer-sub001/internal/textutil"
	"github.com/dan5py/mbox-viewer-sub001/internal/worker"
)

var searchShowProgress bool

var searchCmd = &cobra.Command{
	Use:   "search <archive.mbox> <query>",
	Short: "Search an archive with the query language",
	Long: `Search supports bare terms, "quoted phrases", field filters
(from:, to:, subject:, body:, label:), has:attachment, date filters
(before:/after: YYYY-MM-DD), and AND/OR/NOT with parentheses. Adjacent
terms are ANDed.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args[1:], " ")
		_, f, err := openArchive(args[0])
		if err != nil {
			return err
		}

		resolve := func(string) (rangeio.RangeReader, error) { return f.Reader(), nil }
		wk := worker.New(resolve, worker.Options{
			ProgressStep: cfg.Search.ProgressStep,
			Logger:       logger,
		})
		boundaries := f.Boundaries()
		wk.Search(f.Reader(), boundaries, query)

		for msg := range wk.Messages() {
			switch msg.Type {
			case worker.TypeProgress:
				if searchShowProgress {
					fmt.Printf("\r%3d%%", msg.Payload)
					if msg.Payload == 100 {
						fmt.Println()
					}
				}
			case worker.TypeError:
				return fmt.Errorf("search failed: %v", msg.Payload)
			case worker.TypeResults:
				indices, _ := msg.Payload.([]int)
				fmt.Printf("%d of %d messages match\n", len(indices), len(boundaries))
				for _, idx := range indices {
					subject := ""
					if p := boundaries[idx].Preview; p != nil {
						subject = p.Subject
					}
					fmt.Printf("%5d  %s\n", idx, textutil.TruncateRunes(subject, 70))
				}
				return nil
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().BoolVar(&searchShowProgress, "progress", false, "print progress while scanning")
	rootCmd.AddCommand(searchCmd)
}

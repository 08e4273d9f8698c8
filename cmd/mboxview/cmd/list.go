package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dan5py/mbox-viewer-sub001/internal/textutil"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list <archive.mbox>",
	Short: "List message previews from an archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, f, err := openArchive(args[0])
		if err != nil {
			return err
		}

		boundaries := f.Boundaries()
		fmt.Printf("%s: %d messages\n\n", f.DisplayName, len(boundaries))
		for _, b := range boundaries {
			if listLimit > 0 && b.Index >= listLimit {
				fmt.Printf("... %d more\n", len(boundaries)-listLimit)
				break
			}
			from, subject, date := "(unknown)", "(no subject)", ""
			if p := b.Preview; p != nil {
				if p.From != "" {
					from = p.From
				}
				if p.Subject != "" {
					subject = p.Subject
				}
				if !p.Date.IsZero() {
					date = p.Date.Format("2006-01-02")
				}
			}
			fmt.Printf("%5d  %-10s  %-30s  %s\n",
				b.Index, date,
				textutil.TruncateRunes(from, 30),
				textutil.TruncateRunes(subject, 60))
		}
		return nil
	},
}

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "show at most this many messages (0 = all)")
	rootCmd.AddCommand(listCmd)
}

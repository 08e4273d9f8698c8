package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dan5py/mbox-viewer-sub001/internal/export"
)

var exportIndices string

var exportMboxCmd = &cobra.Command{
	Use:   "export-mbox <archive.mbox> <out.mbox>",
	Short: "Write selected messages into a fresh mbox file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, f, err := openArchive(args[0])
		if err != nil {
			return err
		}

		var indices []int
		if exportIndices == "" {
			for i := 0; i < f.MessageCount(); i++ {
				indices = append(indices, i)
			}
		} else {
			for _, part := range strings.Split(exportIndices, ",") {
				idx, err := strconv.Atoi(strings.TrimSpace(part))
				if err != nil {
					return fmt.Errorf("invalid index %q", part)
				}
				indices = append(indices, idx)
			}
		}

		if err := export.Mbox(st, f.ID, indices, args[1]); err != nil {
			return err
		}
		fmt.Printf("wrote %d messages to %s\n", len(indices), args[1])
		return nil
	},
}

func init() {
	exportMboxCmd.Flags().StringVarP(&exportIndices, "indices", "i", "", "comma-separated message indices (default all)")
	rootCmd.AddCommand(exportMboxCmd)
}

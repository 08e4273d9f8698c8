package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dan5py/mbox-viewer-sub001/internal/export"
)

var attachmentsExportDir string

var attachmentsCmd = &cobra.Command{
	Use:   "attachments <archive.mbox>",
	Short: "List every attachment in an archive, optionally exporting them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, f, err := openArchive(args[0])
		if err != nil {
			return err
		}
		refs, err := st.IndexAttachments(cmd.Context(), f.ID)
		if err != nil {
			return err
		}
		if len(refs) == 0 {
			fmt.Println("no attachments")
			return nil
		}

		for _, ref := range refs {
			fmt.Printf("%5d  %-40s  %-24s  %d bytes\n",
				ref.MessageIndex, ref.Attachment.Filename, ref.Attachment.MIMEType, ref.Attachment.Size)
			if attachmentsExportDir != "" {
				path, err := export.Attachment(attachmentsExportDir, ref.Attachment)
				if err != nil {
					logger.Warn("export failed", "filename", ref.Attachment.Filename, "error", err)
					continue
				}
				fmt.Printf("       -> %s\n", path)
			}
		}
		return nil
	},
}

func init() {
	attachmentsCmd.Flags().StringVarP(&attachmentsExportDir, "export", "o", "", "write attachments into this directory")
	rootCmd.AddCommand(attachmentsCmd)
}

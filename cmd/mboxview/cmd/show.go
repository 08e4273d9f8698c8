package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dan5py/mbox-viewer-sub001/internal/store"
)

var showRawHeaders bool

var showCmd = &cobra.Command{
	Use:   "show <archive.mbox> <index>",
	Short: "Decode and print one message",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid index %q", args[1])
		}
		st, f, err := openArchive(args[0])
		if err != nil {
			return err
		}
		msg, err := st.LoadMessage(f.ID, index, store.LoadOptions{Cache: true})
		if err != nil {
			return err
		}

		fmt.Printf("From: %s\n", msg.From)
		fmt.Printf("To: %s\n", msg.To)
		if msg.Cc != "" {
			fmt.Printf("Cc: %s\n", msg.Cc)
		}
		fmt.Printf("Subject: %s\n", msg.Subject)
		if !msg.Date.IsZero() {
			fmt.Printf("Date: %s\n", msg.Date.Format("Mon, 2 Jan 2006 15:04:05 MST"))
		} else if msg.DateRaw != "" {
			fmt.Printf("Date: %s\n", msg.DateRaw)
		}
		if showRawHeaders {
			fmt.Println()
			for _, h := range msg.Headers {
				fmt.Printf("%s: %s\n", h.Name, h.Value)
			}
		}
		fmt.Println()
		fmt.Println(msg.Body)

		if len(msg.Attachments) > 0 {
			fmt.Printf("\nAttachments (%d):\n", len(msg.Attachments))
			for _, a := range msg.Attachments {
				fmt.Printf("  %s  %s  %d bytes\n", a.Filename, a.MIMEType, a.Size)
			}
		}
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showRawHeaders, "headers", false, "print the full header block")
	rootCmd.AddCommand(showCmd)
}

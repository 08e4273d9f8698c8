package main

import (
	"os"

	"github.com/dan5py/mbox-viewer-sub001/cmd/mboxview/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package store

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dan5py/mbox-viewer-sub001/internal/mime"
)

// AttachmentRef locates one attachment within a file.
type AttachmentRef struct {
	MessageIndex int                  `json:"messageIndex"`
	Attachment   mime.EmailAttachment `json:"attachment"`
}

// IndexAttachments scans every message of a file and returns all attachment
// parts in boundary order. Decodes bypass the cache so a bulk scan never
// evicts the interactive working set, and fan out across a bounded worker
// group. Per-message decode failures are skipped; only reader-level errors
// abort the scan.
func (s *Store) IndexAttachments(ctx context.Context, fileID string) ([]AttachmentRef, error) {
	f, err := s.File(fileID)
	if err != nil {
		return nil, err
	}
	count := f.MessageCount()

	var (
		mu   sync.Mutex
		refs []AttachmentRef
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i := 0; i < count; i++ {
		index := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			msg, err := s.LoadMessage(fileID, index, LoadOptions{Cache: false})
			if err != nil {
				s.log.Debug("skipping undecodable message", "file", fileID, "index", index, "error", err)
				return nil
			}
			if len(msg.Attachments) == 0 {
				return nil
			}
			mu.Lock()
			for _, a := range msg.Attachments {
				refs = append(refs, AttachmentRef{MessageIndex: index, Attachment: a})
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].MessageIndex < refs[j].MessageIndex
	})
	return refs, nil
}

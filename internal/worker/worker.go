// Package worker runs searches off the interactive control path.
//
// The orchestrator owns a monotonically increasing run id. Dispatching a new
// SEARCH (or an ABORT) increments it, which invalidates every older in-flight
// run: a run re-checks the id before each unit of work and before each emit,
// and goes silent once stale. Cancellation is cooperative — a stale run may
// keep scanning briefly, but it can never produce further observable output.
package worker

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"

	"github.com/dan5py/mbox-viewer-sub001/internal/mbox"
	"github.com/dan5py/mbox-viewer-sub001/internal/rangeio"
	"github.com/dan5py/mbox-viewer-sub001/internal/search"
)

// ErrProtocol reports a malformed inbound message. It is surfaced as an
// ERROR emission; it never crashes the worker.
var ErrProtocol = eris.New("malformed worker message")

// ReaderResolver maps a SEARCH payload's file id to its RangeReader.
// *store.Store satisfies this through a small adapter in the caller.
type ReaderResolver func(fileID string) (rangeio.RangeReader, error)

// Options configures a Worker.
type Options struct {
	// ProgressStep is the minimum percentage delta between PROGRESS
	// emissions. Defaults to 1.
	ProgressStep int

	// Buffer is the outbound channel capacity. Defaults to 128.
	Buffer int

	// Logger is optional; defaults to slog.Default().
	Logger *slog.Logger
}

// Worker is the search orchestrator. One Worker serves one UI surface; all
// communication happens over Dispatch and Messages, never shared memory.
type Worker struct {
	resolve ReaderResolver
	out     chan Outbound
	log     *slog.Logger
	step    int

	// runID is incremented only by the dispatch path (Search/Abort).
	runID atomic.Int64

	// emitMu serializes the id-check-then-send pair so a stale run can not
	// slip an emission past a newer run's invalidation.
	emitMu sync.Mutex
}

// New creates a Worker that resolves file readers through resolve.
func New(resolve ReaderResolver, opts Options) *Worker {
	if opts.ProgressStep <= 0 {
		opts.ProgressStep = 1
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 128
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		resolve: resolve,
		out:     make(chan Outbound, opts.Buffer),
		log:     log,
		step:    opts.ProgressStep,
	}
}

// Messages returns the outbound message stream.
func (w *Worker) Messages() <-chan Outbound {
	return w.out
}

// Dispatch handles one inbound protocol message. Unknown types and
// undecodable payloads produce an ERROR emission and are otherwise ignored.
func (w *Worker) Dispatch(msg Inbound) {
	switch msg.Type {
	case TypeSearch:
		var payload SearchPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			w.emitAlways(errorMsg(eris.Wrap(ErrProtocol, err.Error()).Error()))
			return
		}
		reader, err := w.resolve(payload.File)
		if err != nil {
			w.emitAlways(errorMsg(fmt.Sprintf("unknown file %q", payload.File)))
			return
		}
		w.Search(reader, payload.Boundaries, payload.Query)
	case TypeAbort:
		w.Abort()
	default:
		w.emitAlways(errorMsg(eris.Wrapf(ErrProtocol, "unknown type %q", msg.Type).Error()))
	}
}

// Search starts a new run, invalidating any in-flight one, and returns the
// new run's id.
func (w *Worker) Search(reader rangeio.RangeReader, boundaries []mbox.Boundary, query string) int64 {
	id := w.runID.Add(1)
	go w.run(id, reader, boundaries, query)
	return id
}

// Abort invalidates the in-flight run, if any. The stale run stops before
// its next unit of work and emits nothing further.
func (w *Worker) Abort() {
	w.runID.Add(1)
}

// emit sends msg if run id is still current, and reports whether it did.
func (w *Worker) emit(id int64, msg Outbound) bool {
	w.emitMu.Lock()
	defer w.emitMu.Unlock()
	if w.runID.Load() != id {
		return false
	}
	w.out <- msg
	return true
}

// emitAlways sends protocol-level errors that are not tied to a run.
func (w *Worker) emitAlways(msg Outbound) {
	w.emitMu.Lock()
	defer w.emitMu.Unlock()
	w.out <- msg
}

func (w *Worker) run(id int64, reader rangeio.RangeReader, boundaries []mbox.Boundary, query string) {
	node, err := search.Compile(query)
	if err != nil {
		// Surfaced once; the run terminates with no partial results.
		w.emit(id, errorMsg(err.Error()))
		return
	}

	// A bare single-word query skips AST evaluation: raw text includes the
	// headers, so one substring test covers the term semantics.
	literal := search.IsLiteral(query)
	needle := strings.ToLower(strings.TrimSpace(query))

	var matches []int
	lastPct := 0
	total := len(boundaries)

	for i, b := range boundaries {
		if w.runID.Load() != id {
			return // invalidated; stop silently
		}

		raw, err := reader.ReadRangeAsText(b.Start, b.End)
		if err != nil {
			w.log.Debug("skipping unreadable message", "index", b.Index, "error", err)
			continue
		}

		matched := false
		if node == nil {
			matched = true
		} else if literal {
			matched = strings.Contains(strings.ToLower(raw), needle)
		} else {
			matched = search.Eval(node, search.ContextFromRaw(b, raw))
		}
		if matched {
			matches = append(matches, b.Index)
		}

		if pct := (i + 1) * 100 / total; pct >= lastPct+w.step && pct < 100 {
			if !w.emit(id, progressMsg(pct)) {
				return
			}
			lastPct = pct
		}
	}

	if !w.emit(id, progressMsg(100)) {
		return
	}
	sort.Ints(matches)
	if matches == nil {
		matches = []int{}
	}
	w.emit(id, resultsMsg(matches))
}

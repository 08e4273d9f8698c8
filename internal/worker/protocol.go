package worker

import (
	"encoding/json"

	"github.com/dan5py/mbox-viewer-sub001/internal/mbox"
)

// Message types of the worker protocol. The shapes are part of the external
// contract and must not change.
const (
	TypeSearch   = "SEARCH"
	TypeAbort    = "ABORT"
	TypeProgress = "PROGRESS"
	TypeResults  = "RESULTS"
	TypeError    = "ERROR"
)

// Inbound is a message sent to the worker:
//
//	{type: "SEARCH", payload: {file, boundaries, query}}
//	{type: "ABORT"}
type Inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SearchPayload is the payload of a SEARCH message.
type SearchPayload struct {
	File       string          `json:"file"`
	Boundaries []mbox.Boundary `json:"boundaries"`
	Query      string          `json:"query"`
}

// Outbound is a message emitted by the worker:
//
//	{type: "PROGRESS", payload: 0..100}
//	{type: "RESULTS", payload: [indices...]}
//	{type: "ERROR", payload: "message"}
type Outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func progressMsg(pct int) Outbound {
	return Outbound{Type: TypeProgress, Payload: pct}
}

func resultsMsg(indices []int) Outbound {
	return Outbound{Type: TypeResults, Payload: indices}
}

func errorMsg(text string) Outbound {
	return Outbound{Type: TypeError, Payload: text}
}

package filereader

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// Event types.
const (
	EventLoad  = "load"
	EventError = "error"
)

// Event describes how a read completed or failed.
type Event struct {
	// Type is EventLoad on success and EventError on failure.
	Type string `json:"type"`

	// Loaded is the number of bytes read from the blob.
	Loaded int64 `json:"loaded"`

	// Total is the blob size reported before the read.
	Total int64 `json:"total"`

	// LengthComputable is true when Total is known.
	LengthComputable bool `json:"length_computable"`

	// Started records when the read was dispatched.
	Started time.Time `json:"started"`

	// Finished records when the read settled.
	Finished time.Time `json:"finished"`
}

// Duration returns the time between dispatch and settlement.
func (e Event) Duration() time.Duration {
	return e.Finished.Sub(e.Started)
}

// Result is the payload of a completed read.
//
// Buffer is set for ModeArrayBuffer; Text is set for the other modes.
type Result struct {
	Mode   Mode
	Buffer []byte
	Text   string
	Event  Event
}

// Value returns the payload in its mode-specific form: []byte for
// ModeArrayBuffer and string otherwise.
func (r *Result) Value() any {
	if r.Mode == ModeArrayBuffer {
		return r.Buffer
	}
	return r.Text
}

// resultJSON is the wire form of Result. Buffer is a pointer so an empty
// array-buffer payload is still written.
type resultJSON struct {
	Mode   Mode    `json:"mode"`
	Buffer *[]byte `json:"buffer,omitempty"`
	Text   string  `json:"text,omitempty"`
	Event  Event   `json:"event"`
}

// MarshalJSON encodes the result with the mode by name and the buffer
// as base64. ModeArrayBuffer results always carry a buffer.
func (r *Result) MarshalJSON() ([]byte, error) {
	wire := resultJSON{Mode: r.Mode, Text: r.Text, Event: r.Event}
	if r.Mode == ModeArrayBuffer || r.Buffer != nil {
		buf := r.Buffer
		if buf == nil {
			buf = []byte{}
		}
		wire.Buffer = &buf
	}
	return jsonCodec.Marshal(wire)
}

// UnmarshalJSON decodes the form written by MarshalJSON. A ModeArrayBuffer
// result never decodes with a nil Buffer.
func (r *Result) UnmarshalJSON(data []byte) error {
	var wire resultJSON
	if err := jsonCodec.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = Result{Mode: wire.Mode, Text: wire.Text, Event: wire.Event}
	if wire.Buffer != nil {
		r.Buffer = *wire.Buffer
	}
	if r.Mode == ModeArrayBuffer && r.Buffer == nil {
		r.Buffer = []byte{}
	}
	return nil
}

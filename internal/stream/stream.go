// Package stream implements the text event-stream framing shared by the
// push subscription and the assistant reply relay: blank-line-terminated
// frames with an optional "event:" line and a "data:" payload line.
package stream

import (
	"bytes"
	"fmt"
	"net/http"
)

// Event is one wire frame. Name is empty for plain data frames.
type Event struct {
	Name string
	Data []byte
}

// Encode renders the frame including its terminating blank line.
func (e Event) Encode() []byte {
	var b bytes.Buffer
	if e.Name != "" {
		fmt.Fprintf(&b, "event: %s\n", e.Name)
	}
	fmt.Fprintf(&b, "data: %s\n\n", e.Data)
	return b.Bytes()
}

// Writer sends frames over an HTTP response that has committed to
// streaming mode. Every frame is flushed immediately.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter sets the event-stream headers and returns a Writer. Fails when
// the ResponseWriter cannot flush, since unflushed frames would sit in a
// buffer until the handler returns.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")

	return &Writer{w: w, flusher: flusher}, nil
}

func (sw *Writer) Send(ev Event) error {
	if _, err := sw.w.Write(ev.Encode()); err != nil {
		return err
	}
	sw.flusher.Flush()
	return nil
}

package stream

import "bytes"

var frameDelimiter = []byte("\n\n")

// Parser reassembles frames from an event stream read in arbitrary
// chunks. Bytes are buffered until a full frame (terminated by a blank
// line) is available, so a delimiter split across two reads is handled
// transparently.
type Parser struct {
	buf []byte
}

// Feed appends a transport read and returns every frame completed by it.
func (p *Parser) Feed(chunk []byte) []Event {
	p.buf = append(p.buf, chunk...)

	var events []Event
	for {
		idx := bytes.Index(p.buf, frameDelimiter)
		if idx < 0 {
			return events
		}
		raw := p.buf[:idx]
		p.buf = p.buf[idx+len(frameDelimiter):]

		if ev, ok := parseFrame(raw); ok {
			events = append(events, ev)
		}
	}
}

// parseFrame splits a raw frame on line boundaries and strips the
// "event:" / "data:" prefixes. Lines without a recognized prefix are kept
// as payload rather than dropped; multiple data lines join with newlines.
func parseFrame(raw []byte) (Event, bool) {
	var ev Event
	var data [][]byte

	for _, line := range bytes.Split(raw, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(line) == 0 {
			continue
		}
		switch {
		case bytes.HasPrefix(line, []byte("event:")):
			ev.Name = string(bytes.TrimSpace(line[len("event:"):]))
		case bytes.HasPrefix(line, []byte("data:")):
			data = append(data, bytes.TrimPrefix(bytes.TrimPrefix(line, []byte("data:")), []byte(" ")))
		case bytes.HasPrefix(line, []byte(":")):
			// comment line
		default:
			data = append(data, line)
		}
	}

	if ev.Name == "" && len(data) == 0 {
		return Event{}, false
	}
	ev.Data = bytes.Join(data, []byte("\n"))
	return ev, true
}

package tftp

import "io"

// netASCIIEncoder wraps a Writer, translating each bare LF in the stream it
// receives into a CRLF pair and each bare CR into CR NUL, the wire
// convention netascii mode uses so a single octet stream crosses platforms
// with differing line-ending conventions.
type netASCIIEncoder struct {
	w io.Writer
}

func newNetASCIIEncoder(w io.Writer) *netASCIIEncoder {
	return &netASCIIEncoder{w: w}
}

func (e *netASCIIEncoder) Write(p []byte) (int, error) {
	out := make([]byte, 0, len(p))
	for _, b := range p {
		switch b {
		case '\n':
			out = append(out, '\r', '\n')
		case '\r':
			out = append(out, '\r', 0)
		default:
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return 0, nil
	}
	if _, err := e.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// netASCIIDecoder wraps a Writer, undoing netASCIIEncoder's translation as
// bytes arrive: CRLF collapses to LF, CR NUL collapses to a bare CR.
type netASCIIDecoder struct {
	w        io.Writer
	pendingCR bool
}

func newNetASCIIDecoder(w io.Writer) *netASCIIDecoder {
	return &netASCIIDecoder{w: w}
}

func (d *netASCIIDecoder) Write(p []byte) (int, error) {
	out := make([]byte, 0, len(p))
	for _, b := range p {
		if d.pendingCR {
			d.pendingCR = false
			if b == '\n' {
				out = append(out, '\n')
				continue
			}
			if b == 0 {
				out = append(out, '\r')
				continue
			}
			out = append(out, '\r', b)
			continue
		}
		if b == '\r' {
			d.pendingCR = true
			continue
		}
		out = append(out, b)
	}
	if len(out) > 0 {
		if _, err := d.w.Write(out); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Flush emits a trailing bare CR if the stream ended mid-escape.
func (d *netASCIIDecoder) Flush() error {
	if d.pendingCR {
		d.pendingCR = false
		_, err := d.w.Write([]byte{'\r'})
		return err
	}
	return nil
}

// newNetASCIIReader returns a Reader that yields r's bytes translated into
// netascii wire form (LF -> CRLF, CR -> CR NUL), for the send-file path
// where the encoder has to sit in front of, not behind, the data source.
func newNetASCIIReader(r io.Reader) io.Reader {
	pr, pw := io.Pipe()
	go func() {
		enc := newNetASCIIEncoder(pw)
		_, err := io.Copy(enc, r)
		pw.CloseWithError(err)
	}()
	return pr
}

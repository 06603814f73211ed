package shell

import (
	"bytes"
	"io"
	"sync"
)

// prefixWriter splits a stream into lines. Each line is written unchanged to the
// underlying writer and passed to log with a prefix.
type prefixWriter struct {
	mu     sync.Mutex
	w      io.Writer
	prefix string
	log    func(string)
	buf    bytes.Buffer
}

func newPrefixWriter(w io.Writer, prefix string, log func(string)) *prefixWriter {
	if w == nil {
		w = io.Discard
	}
	return &prefixWriter{w: w, prefix: prefix, log: log}
}

func (p *prefixWriter) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf.Write(b)
	for {
		i := bytes.IndexByte(p.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := p.buf.Next(i + 1)
		if err := p.emit(line); err != nil {
			return len(b), err
		}
	}
	return len(b), nil
}

// Flush emits a trailing line that was not terminated by a newline.
func (p *prefixWriter) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.buf.Len() == 0 {
		return
	}
	line := append(p.buf.Bytes(), '\n')
	p.buf.Reset()
	_ = p.emit(line)
}

func (p *prefixWriter) emit(line []byte) error {
	text := string(bytes.TrimRight(line, "\r\n"))
	p.log(p.prefix + text)
	_, err := p.w.Write(line)
	return err
}

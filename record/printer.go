package record

import (
	"io"
	"os"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// Printer writes values as lines of text. Each call issues exactly one Write
// holding the value and its newline. Write failures are logged and dropped.
type Printer struct {
	w   io.Writer
	log *zap.Logger
	buf []byte
	mu  sync.Mutex
}

// NewPrinter returns a Printer writing to w, or to os.Stdout when w is nil.
func NewPrinter(w io.Writer, log *zap.Logger) *Printer {
	if w == nil {
		w = os.Stdout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Printer{w: w, log: log}
}

func (p *Printer) PrintInt(v int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buf = strconv.AppendInt(p.buf[:0], int64(v), 10)
	p.flush()
}

func (p *Printer) PrintBool(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v {
		p.buf = append(p.buf[:0], "True"...)
	} else {
		p.buf = append(p.buf[:0], "False"...)
	}
	p.flush()
}

// PrintBytes writes content verbatim.
func (p *Printer) PrintBytes(content []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buf = append(p.buf[:0], content...)
	p.flush()
}

// PrintText writes the terminator-delimited content of t. Only a failure to
// read the record is reported.
func (p *Printer) PrintText(h *Heap, t Text) error {
	content, err := h.content(t)
	if err != nil {
		return err
	}
	p.PrintBytes(content)
	return nil
}

// flush must be called with mu held.
func (p *Printer) flush() {
	p.buf = append(p.buf, '\n')
	if _, err := p.w.Write(p.buf); err != nil {
		p.log.Debug("console write failed", zap.Error(err))
	}
}

package console

import (
	"bytes"
	"io"
	"sync"
)

// promptStdin hands terminal input to the line editor only while a prompt is
// showing. The line editor keeps reading in the background, so without the
// gate a read left pending after Enter would take the first keystrokes meant
// for a utility running in the foreground.
//
// Each Read spends one permit. A chunk without a line end renews the permit;
// a chunk that ends a line does not, so the next Read blocks until arm.
type promptStdin struct {
	r         io.Reader
	armed     chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

func newPromptStdin(r io.Reader) *promptStdin {
	return &promptStdin{
		r:      r,
		armed:  make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// arm lets the line editor read until the next line end.
func (s *promptStdin) arm() {
	select {
	case s.armed <- struct{}{}:
	default:
	}
}

func (s *promptStdin) Read(p []byte) (int, error) {
	select {
	case <-s.armed:
	case <-s.closed:
		return 0, io.EOF
	}

	n, err := s.r.Read(p)
	if err != nil || !bytes.ContainsAny(p[:n], "\r\n") {
		s.arm()
	}
	return n, err
}

// Close releases a blocked Read. The underlying reader stays open.
func (s *promptStdin) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

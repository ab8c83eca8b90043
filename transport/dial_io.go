package transport

import (
	"io"
	"os"
	"sync"
	"time"
)

// ioduplex joins a WriteCloser and a ReadCloser into a Channel. Plain
// readers cannot time out, so a goroutine pumps the reader and Read waits
// on what it delivers.
type ioduplex struct {
	io.WriteCloser
	in io.ReadCloser

	chunks  chan []byte
	pending []byte
	err     error

	mu      sync.Mutex
	timeout time.Duration
}

func newIODuplex(out io.WriteCloser, in io.ReadCloser) *ioduplex {
	d := &ioduplex{
		WriteCloser: out,
		in:          in,
		chunks:      make(chan []byte),
	}
	go d.pump()
	return d
}

func (d *ioduplex) pump() {
	buf := make([]byte, 4096)
	for {
		n, err := d.in.Read(buf)
		if n > 0 {
			b := make([]byte, n)
			copy(b, buf[:n])
			d.chunks <- b
		}
		if err != nil {
			d.err = err
			close(d.chunks)
			return
		}
	}
}

func (d *ioduplex) SetReadTimeout(t time.Duration) error {
	d.mu.Lock()
	d.timeout = t
	d.mu.Unlock()
	return nil
}

func (d *ioduplex) Read(p []byte) (int, error) {
	if len(d.pending) == 0 {
		d.mu.Lock()
		t := d.timeout
		d.mu.Unlock()

		var expired <-chan time.Time
		if t > 0 {
			timer := time.NewTimer(t)
			defer timer.Stop()
			expired = timer.C
		}
		select {
		case b, ok := <-d.chunks:
			if !ok {
				return 0, d.err
			}
			d.pending = b
		case <-expired:
			return 0, os.ErrDeadlineExceeded
		}
	}
	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

func (d *ioduplex) Close() error {
	if err := d.WriteCloser.Close(); err != nil {
		return err
	}
	if err := d.in.Close(); err != nil {
		return err
	}
	return nil
}

// DialIO returns a Channel that writes to out and reads from in.
func DialIO(out io.WriteCloser, in io.ReadCloser) (Channel, error) {
	return newIODuplex(out, in), nil
}

// DialStdio returns a Channel over Stdout and Stdin.
func DialStdio() (Channel, error) {
	return DialIO(os.Stdout, os.Stdin)
}

package frame

import (
	"io"
	"sync"
)

// Encoder writes frames to an io.Writer.
type Encoder struct {
	w io.Writer
	sync.Mutex
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes the wire form of f. A write that accepts fewer bytes than
// the frame holds without reporting an error returns io.ErrShortWrite.
func (enc *Encoder) Encode(f Frame) error {
	enc.Lock()
	defer enc.Unlock()

	b := f.Bytes()
	n, err := enc.w.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return io.ErrShortWrite
	}
	return nil
}

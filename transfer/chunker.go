package transfer

import (
	"fmt"
	"math"
)

// Chunks splits buf into consecutive slices of size bytes; the last one
// holds the remainder. The slices alias buf.
func Chunks(buf []byte, size int) [][]byte {
	if size <= 0 {
		panic("transfer: chunk size must be positive")
	}
	chunks := make([][]byte, 0, (len(buf)+size-1)/size)
	for len(buf) > size {
		chunks = append(chunks, buf[:size:size])
		buf = buf[size:]
	}
	if len(buf) > 0 {
		chunks = append(chunks, buf)
	}
	return chunks
}

func checkSendable(buf []byte, size int) error {
	if len(buf) == 0 {
		return ErrEmpty
	}
	if n := (len(buf) + size - 1) / size; n > math.MaxUint16 {
		return fmt.Errorf("%w: %d bytes need %d chunks", ErrTooLarge, len(buf), n)
	}
	return nil
}

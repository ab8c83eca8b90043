package frame

import (
	"bytes"
	"errors"
	"testing"
)

func fatal(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		in  Frame
		len int
	}{
		{
			in:  Data([]byte("Hello"), 0, 3),
			len: 14,
		},
		{
			in:  Data(bytes.Repeat([]byte{0xff}, MaxPayload), 65535, 65535),
			len: HeaderLen + MaxPayload,
		},
		{
			in:  Data([]byte{0}, 2, 3),
			len: 10,
		},
		{
			in:  Ack(1, 3),
			len: HeaderLen,
		},
		{
			in:  Nack(0, 0),
			len: HeaderLen,
		},
		{
			in:  Error(),
			len: HeaderLen,
		},
	}
	for _, test := range tests {
		b := test.in.Bytes()
		if len(b) != test.len {
			t.Fatalf("%s: wire length %d, want %d", test.in, len(b), test.len)
		}
		if test.in.Len() != test.len {
			t.Fatalf("%s: Len %d, want %d", test.in, test.in.Len(), test.len)
		}
		f, err := Decode(b)
		fatal(err, t)
		if f.Kind != test.in.Kind || f.Sequence != test.in.Sequence ||
			f.Total != test.in.Total || f.Length != test.in.Length {
			t.Fatalf("header mismatch: got %s, want %s", f, test.in)
		}
		if !bytes.Equal(f.Payload, test.in.Payload) {
			t.Fatalf("payload mismatch: got %v, want %v", f.Payload, test.in.Payload)
		}
		if f.String() == "" {
			t.Fatal("empty string representation")
		}
	}
}

func TestEncodeHelpers(t *testing.T) {
	if !bytes.Equal(EncodeData([]byte("abc"), 1, 2), Data([]byte("abc"), 1, 2).Bytes()) {
		t.Fatal("EncodeData differs from Data")
	}
	if !bytes.Equal(EncodeAck(1, 2), Ack(1, 2).Bytes()) {
		t.Fatal("EncodeAck differs from Ack")
	}
	if !bytes.Equal(EncodeNack(1, 2), Nack(1, 2).Bytes()) {
		t.Fatal("EncodeNack differs from Nack")
	}
	f, err := Decode(EncodeErr())
	fatal(err, t)
	if f.Kind != KindErr || f.Sequence != 0 || f.Total != 0 || f.Length != 0 {
		t.Fatalf("unexpected err frame %s", f)
	}
}

func TestWireLayout(t *testing.T) {
	b := EncodeData([]byte{0xaa, 0xbb}, 0x0102, 0x0304)
	want := []byte{0, 0, 0x01, 0x01, 0x02, 0x03, 0x04, 0x00, 0x02, 0xaa, 0xbb}
	if !bytes.Equal(b[2:], want[2:]) {
		t.Fatalf("layout %x, want %x", b[2:], want[2:])
	}
}

func TestDecodeDoesNotAlias(t *testing.T) {
	b := EncodeData([]byte("abcd"), 0, 1)
	f, err := Decode(b)
	fatal(err, t)
	b[HeaderLen] = 'z'
	if string(f.Payload) != "abcd" {
		t.Fatalf("payload changed with input buffer: %q", f.Payload)
	}
}

func TestCorruptionRejected(t *testing.T) {
	frames := [][]byte{
		EncodeData([]byte("The quick brown fox"), 4, 9),
		EncodeAck(3, 9),
		EncodeNack(0, 0),
		EncodeErr(),
	}
	for _, orig := range frames {
		for i := range orig {
			for _, mask := range []byte{0x01, 0x80, 0xff} {
				b := append([]byte(nil), orig...)
				b[i] ^= mask
				if _, err := Decode(b); !errors.Is(err, ErrInvalid) {
					t.Fatalf("byte %d ^ 0x%02x of %x accepted", i, mask, orig)
				}
			}
		}
	}
}

func TestControlPayloadRejected(t *testing.T) {
	for _, kind := range []Kind{KindAck, KindNack, KindErr} {
		f := Frame{Header: Header{Kind: kind, Sequence: 1, Total: 2, Length: 3}, Payload: []byte{1, 2, 3}}
		if _, err := Decode(f.Bytes()); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s frame with payload accepted", kind)
		}
	}
}

func TestTruncationRejected(t *testing.T) {
	frames := [][]byte{
		EncodeData([]byte("payload"), 0, 1),
		EncodeAck(0, 1),
	}
	for _, b := range frames {
		if _, err := Decode(b[:len(b)-1]); !errors.Is(err, ErrInvalid) {
			t.Fatalf("truncated %x accepted", b)
		}
		if _, err := Decode(append(b, 0)); !errors.Is(err, ErrInvalid) {
			t.Fatalf("run-on %x accepted", b)
		}
	}
	if _, err := Decode(nil); !errors.Is(err, ErrInvalid) {
		t.Fatal("empty input accepted")
	}
}

func TestOversizedPayloadRejected(t *testing.T) {
	b := Data(make([]byte, MaxPayload+1), 0, 1).Bytes()
	if _, err := Decode(b); !errors.Is(err, ErrInvalid) {
		t.Fatal("payload over MaxPayload accepted")
	}
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		KindDataSend: "DataSend",
		KindAck:      "Ack",
		KindNack:     "Nack",
		KindErr:      "Err",
		Kind(7):      "Kind(0x07)",
	}
	for k, want := range tests {
		if k.String() != want {
			t.Fatalf("got %q, want %q", k.String(), want)
		}
	}
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) {
	return len(p) - 1, nil
}

func TestEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	fatal(enc.Encode(Data([]byte("Hello"), 0, 1)), t)
	fatal(enc.Encode(Ack(0, 1)), t)
	if buf.Len() != 14+HeaderLen {
		t.Fatalf("encoded %d bytes", buf.Len())
	}

	enc = NewEncoder(shortWriter{})
	if err := enc.Encode(Ack(0, 1)); err == nil {
		t.Fatal("expected short write error")
	}
}

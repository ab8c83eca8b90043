// Package frame implements encoding and decoding of ITP frames.
//
// A frame on the wire is a 9 byte big-endian header followed by the payload:
//
//	checksum  uint16  CRC-16/XMODEM over every following byte
//	kind      uint8
//	sequence  uint16
//	total     uint16
//	length    uint16
//	payload   [length]byte
//
// Only DataSend frames carry a payload; control frames are exactly 9 bytes.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/progrium/itp-go/crc16"
)

const (
	// HeaderLen is the size of the fixed frame header on the wire.
	HeaderLen = 9

	// MaxPayload is the largest chunk a DataSend frame may carry. Both
	// peers must agree on it.
	MaxPayload = 20

	// MaxFrameLen bounds a single frame read.
	MaxFrameLen = 1500
)

// ErrInvalid is returned for any frame that fails verification. Callers are
// not told why; bad data is discarded and retransmission is requested instead.
var ErrInvalid = errors.New("itp: invalid frame")

// Kind identifies the purpose of a frame.
type Kind uint8

const (
	KindDataSend Kind = iota + 0x01
	KindAck
	KindNack
	KindErr
)

func (k Kind) String() string {
	switch k {
	case KindDataSend:
		return "DataSend"
	case KindAck:
		return "Ack"
	case KindNack:
		return "Nack"
	case KindErr:
		return "Err"
	default:
		return fmt.Sprintf("Kind(0x%02x)", uint8(k))
	}
}

// Header is the fixed part of a frame.
type Header struct {
	Checksum uint16
	Kind     Kind
	Sequence uint16
	Total    uint16
	Length   uint16
}

// Frame is a header plus its payload.
type Frame struct {
	Header
	Payload []byte
}

// Data builds a DataSend frame. The caller keeps len(payload) within
// MaxPayload; chunking in the transfer engine guarantees it.
func Data(payload []byte, seq, total uint16) Frame {
	return Frame{
		Header: Header{
			Kind:     KindDataSend,
			Sequence: seq,
			Total:    total,
			Length:   uint16(len(payload)),
		},
		Payload: payload,
	}
}

// Ack builds an acknowledgement for chunk seq.
func Ack(seq, total uint16) Frame {
	return control(KindAck, seq, total)
}

// Nack asks the peer to send chunk seq again.
func Nack(seq, total uint16) Frame {
	return control(KindNack, seq, total)
}

// Error builds the frame telling the peer the transfer cannot continue.
func Error() Frame {
	return control(KindErr, 0, 0)
}

func control(kind Kind, seq, total uint16) Frame {
	return Frame{Header: Header{Kind: kind, Sequence: seq, Total: total}}
}

// EncodeData returns the wire bytes of a DataSend frame.
func EncodeData(payload []byte, seq, total uint16) []byte {
	return Data(payload, seq, total).Bytes()
}

// EncodeAck returns the wire bytes of an Ack frame.
func EncodeAck(seq, total uint16) []byte {
	return Ack(seq, total).Bytes()
}

// EncodeNack returns the wire bytes of a Nack frame.
func EncodeNack(seq, total uint16) []byte {
	return Nack(seq, total).Bytes()
}

// EncodeErr returns the wire bytes of an Err frame.
func EncodeErr() []byte {
	return Error().Bytes()
}

// Len is the number of bytes the frame occupies on the wire.
func (f Frame) Len() int {
	return HeaderLen + int(f.Length)
}

func (f Frame) String() string {
	return fmt.Sprintf("{Frame Kind:%s Sequence:%d Total:%d Length:%d}",
		f.Kind, f.Sequence, f.Total, f.Length)
}

// Bytes lays the frame out on the wire. The checksum is computed over the
// encoded header and payload and written last; f.Checksum is ignored.
func (f Frame) Bytes() []byte {
	packet := make([]byte, HeaderLen, HeaderLen+len(f.Payload))
	packet[2] = byte(f.Kind)
	binary.BigEndian.PutUint16(packet[3:5], f.Sequence)
	binary.BigEndian.PutUint16(packet[5:7], f.Total)
	binary.BigEndian.PutUint16(packet[7:9], f.Length)
	packet = append(packet, f.Payload...)
	binary.BigEndian.PutUint16(packet[0:2], crc16.Checksum(packet[crc16.Size:]))
	return packet
}

// Decode verifies b as one complete frame, len(b) being the number of bytes
// received. The byte count must equal the length the header announces and
// the checksum must match. Only DataSend frames may carry a payload. Every
// other outcome is ErrInvalid. The returned
// payload does not alias b.
func Decode(b []byte) (Frame, error) {
	if len(b) < HeaderLen {
		return Frame{}, ErrInvalid
	}
	h := Header{
		Checksum: binary.BigEndian.Uint16(b[0:2]),
		Kind:     Kind(b[2]),
		Sequence: binary.BigEndian.Uint16(b[3:5]),
		Total:    binary.BigEndian.Uint16(b[5:7]),
		Length:   binary.BigEndian.Uint16(b[7:9]),
	}
	if h.Length > MaxPayload || len(b) != HeaderLen+int(h.Length) {
		return Frame{}, ErrInvalid
	}
	if h.Kind != KindDataSend && h.Length != 0 {
		return Frame{}, ErrInvalid
	}
	if h.Checksum != crc16.Checksum(b[crc16.Size:]) {
		return Frame{}, ErrInvalid
	}
	f := Frame{Header: h}
	if h.Length > 0 {
		f.Payload = make([]byte, h.Length)
		copy(f.Payload, b[HeaderLen:])
	}
	return f, nil
}

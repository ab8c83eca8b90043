// Package envelope wraps a file for transfer so the receiving side can
// restore its name and mode. Envelopes are CBOR arrays.
package envelope

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/gabriel-vasile/mimetype"
)

// Version is written as the first element of every envelope.
const Version = 1

var (
	// ErrVersion is returned when decoding an envelope of another version.
	ErrVersion = errors.New("envelope: unsupported version")

	// ErrName is returned when an envelope name would leave the target
	// directory.
	ErrName = errors.New("envelope: invalid file name")
)

// Envelope is a named file body.
type Envelope struct {
	_       struct{} `cbor:",toarray"`
	Version uint8
	Name    string
	Mode    uint32
	MIME    string
	Data    []byte
}

// New builds an envelope for data, detecting its MIME type.
func New(name string, mode fs.FileMode, data []byte) *Envelope {
	return &Envelope{
		Version: Version,
		Name:    filepath.Base(name),
		Mode:    uint32(mode.Perm()),
		MIME:    mimetype.Detect(data).String(),
		Data:    data,
	}
}

// Open reads the file at path into an envelope.
func Open(path string) (*Envelope, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("envelope: %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(fi.Name(), fi.Mode(), data), nil
}

// Encode returns the CBOR encoding of e.
func (e *Envelope) Encode() ([]byte, error) {
	return cbor.Marshal(e)
}

// Decode parses an envelope produced by Encode.
func Decode(b []byte) (*Envelope, error) {
	var e Envelope
	if err := cbor.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("envelope: %w", err)
	}
	if e.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, e.Version)
	}
	return &e, nil
}

// WriteTo writes the file body into dir under the envelope name and
// returns the path written.
func (e *Envelope) WriteTo(dir string) (string, error) {
	if e.Name == "" || e.Name == "." || e.Name != filepath.Base(e.Name) || !filepath.IsLocal(e.Name) {
		return "", fmt.Errorf("%w: %q", ErrName, e.Name)
	}
	mode := fs.FileMode(e.Mode).Perm()
	if mode == 0 {
		mode = 0o644
	}
	path := filepath.Join(dir, e.Name)
	if err := os.WriteFile(path, e.Data, mode); err != nil {
		return "", err
	}
	return path, nil
}

func (e *Envelope) String() string {
	return fmt.Sprintf("{Envelope Name:%s Mode:%04o MIME:%s Size:%d}", e.Name, e.Mode, e.MIME, len(e.Data))
}

// Package image stores finished chunks on disk so they can be run or
// disassembled without the front end.
//
// Format:
//   - Magic number (4 bytes): "CLXB"
//   - Version (1 byte): 0x01
//   - CBOR-encoded body (canonical mode)
package image

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/funvibe/clox/internal/vm"
	"github.com/google/uuid"
)

const imageVersionV1 byte = 0x01

var magic = []byte{'C', 'L', 'X', 'B'}

var (
	ErrBadMagic           = errors.New("invalid magic number, expected CLXB")
	ErrUnsupportedVersion = errors.New("unsupported image version")
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	encMode = em

	// Constant pools and line maps can outgrow the default array limit
	dm, err := cbor.DecOptions{MaxArrayElements: math.MaxInt32}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR dec mode: %v", err))
	}
	decMode = dm
}

// Image is a chunk plus the metadata needed to identify it.
type Image struct {
	// ID distinguishes builds of the same listing
	ID uuid.UUID

	// Name labels the chunk in disassembly headers
	Name string

	Chunk *vm.Chunk
}

type body struct {
	ID        []byte    `cbor:"1,keyasint"`
	Name      string    `cbor:"2,keyasint"`
	Code      []byte    `cbor:"3,keyasint"`
	Constants []float64 `cbor:"4,keyasint,omitempty"`
	Lines     []lineRun `cbor:"5,keyasint"`
}

type lineRun struct {
	Line  int `cbor:"1,keyasint"`
	Count int `cbor:"2,keyasint"`
}

// New wraps chunk in an image with a fresh ID
func New(chunk *vm.Chunk, name string) *Image {
	return &Image{ID: uuid.New(), Name: name, Chunk: chunk}
}

// Encode converts the image to its binary format
func (img *Image) Encode() ([]byte, error) {
	b := body{
		ID:   img.ID[:],
		Name: img.Name,
		Code: img.Chunk.Code,
	}
	for _, v := range img.Chunk.Constants {
		b.Constants = append(b.Constants, float64(v))
	}
	for _, run := range img.Chunk.Lines {
		b.Lines = append(b.Lines, lineRun{Line: run.Line, Count: run.Count})
	}

	payload, err := encMode.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("image: cbor encoding failed: %w", err)
	}

	buf := new(bytes.Buffer)
	buf.Write(magic)
	buf.WriteByte(imageVersionV1)
	buf.Write(payload)
	return buf.Bytes(), nil
}

// Decode reads an image and checks that its chunk can be run
func Decode(data []byte) (*Image, error) {
	if len(data) < len(magic)+1 {
		return nil, fmt.Errorf("image: data too short (%d bytes)", len(data))
	}
	if !bytes.Equal(data[:len(magic)], magic) {
		return nil, ErrBadMagic
	}

	version := data[len(magic)]
	if version != imageVersionV1 {
		return nil, fmt.Errorf("%w: %d (this binary supports version %d)", ErrUnsupportedVersion, version, imageVersionV1)
	}

	var b body
	if err := decMode.Unmarshal(data[len(magic)+1:], &b); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}

	id, err := uuid.FromBytes(b.ID)
	if err != nil {
		return nil, fmt.Errorf("image: bad id: %w", err)
	}

	chunk := vm.NewChunk()
	chunk.Code = append(chunk.Code, b.Code...)
	for _, v := range b.Constants {
		chunk.Constants = append(chunk.Constants, vm.Value(v))
	}
	for _, run := range b.Lines {
		chunk.Lines = append(chunk.Lines, vm.LineRun{Line: run.Line, Count: run.Count})
	}

	if err := chunk.Validate(); err != nil {
		return nil, fmt.Errorf("image %s: %w", id, err)
	}

	return &Image{ID: id, Name: b.Name, Chunk: chunk}, nil
}

// WriteFile encodes img to path
func WriteFile(path string, img *Image) error {
	data, err := img.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing image %s: %w", path, err)
	}
	return nil
}

// ReadFile decodes the image at path
func ReadFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image %s: %w", path, err)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

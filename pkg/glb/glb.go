// Package glb reads and writes the binary glTF container: a 12-byte header
// followed by a JSON chunk and an optional BIN chunk.
package glb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Container constants.
const (
	Magic      uint32 = 0x46546C67 // "glTF"
	Version    uint32 = 2
	ChunkJSON  uint32 = 0x4E4F534A // "JSON"
	ChunkBIN   uint32 = 0x004E4942 // "BIN\0"
	headerSize        = 12
	chunkHead         = 8
)

// GLB format errors.
var (
	ErrInvalidMagic       = errors.New("invalid GLB magic: expected 'glTF'")
	ErrUnsupportedVersion = errors.New("unsupported GLB version")
	ErrTruncated          = errors.New("truncated GLB data")
	ErrMissingJSON        = errors.New("GLB has no JSON chunk")
)

// GLB is a split binary container. JSON and BIN alias the parsed input.
type GLB struct {
	Version uint32
	JSON    []byte
	BIN     []byte // nil when the file has no BIN chunk
}

// IsGLB reports whether data starts with the GLB magic.
func IsGLB(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data) == Magic
}

// Parse splits a GLB container from raw bytes.
func Parse(data []byte) (*GLB, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncated, headerSize, len(data))
	}
	if binary.LittleEndian.Uint32(data[0:4]) != Magic {
		return nil, ErrInvalidMagic
	}

	g := &GLB{Version: binary.LittleEndian.Uint32(data[4:8])}
	if g.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, g.Version)
	}

	length := binary.LittleEndian.Uint32(data[8:12])
	if uint64(length) > uint64(len(data)) || length < headerSize {
		return nil, fmt.Errorf("%w: header declares %d bytes, have %d", ErrTruncated, length, len(data))
	}
	data = data[:length]

	// Chunks follow the header back to back; the first must be JSON.
	offset := headerSize
	for i := 0; offset < len(data); i++ {
		if len(data)-offset < chunkHead {
			return nil, fmt.Errorf("%w: chunk %d header", ErrTruncated, i)
		}
		size := int(binary.LittleEndian.Uint32(data[offset:]))
		kind := binary.LittleEndian.Uint32(data[offset+4:])
		offset += chunkHead
		if size < 0 || size > len(data)-offset {
			return nil, fmt.Errorf("%w: chunk %d declares %d bytes, have %d", ErrTruncated, i, size, len(data)-offset)
		}
		body := data[offset : offset+size]
		offset += size

		switch {
		case i == 0 && kind != ChunkJSON:
			return nil, fmt.Errorf("%w: first chunk type 0x%08X", ErrMissingJSON, kind)
		case i == 0:
			g.JSON = body
		case kind == ChunkBIN && g.BIN == nil:
			g.BIN = body
		}
		// Unknown chunk types are skipped.
	}

	if g.JSON == nil {
		return nil, ErrMissingJSON
	}
	return g, nil
}

// Encode builds a GLB container. The JSON chunk is padded with spaces and
// the BIN chunk with zeros to 4-byte boundaries; bin may be nil.
func Encode(json, bin []byte) []byte {
	jsonChunk := pad(json, ' ')
	binChunk := pad(bin, 0)

	total := headerSize + chunkHead + len(jsonChunk)
	if bin != nil {
		total += chunkHead + len(binChunk)
	}

	buf := bytes.NewBuffer(make([]byte, 0, total))
	binary.Write(buf, binary.LittleEndian, [3]uint32{Magic, Version, uint32(total)})
	binary.Write(buf, binary.LittleEndian, [2]uint32{uint32(len(jsonChunk)), ChunkJSON})
	buf.Write(jsonChunk)
	if bin != nil {
		binary.Write(buf, binary.LittleEndian, [2]uint32{uint32(len(binChunk)), ChunkBIN})
		buf.Write(binChunk)
	}
	return buf.Bytes()
}

func pad(data []byte, fill byte) []byte {
	out := append([]byte(nil), data...)
	for len(out)%4 != 0 {
		out = append(out, fill)
	}
	return out
}

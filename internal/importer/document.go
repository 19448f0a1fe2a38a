package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Faultbox/gltfimport/pkg/glb"
	"github.com/Faultbox/gltfimport/pkg/payload"
	"github.com/qmuntal/gltf"
)

// Source is a decoded glTF document together with the embedded binary
// chunk it was shipped with, if any.
type Source struct {
	Path string // File the document was read from
	Root string // Directory external URIs resolve against
	Doc  *gltf.Document
	BIN  []byte // GLB binary chunk, nil for .gltf files
}

// LoadFile reads a .gltf or .glb file. The container is detected from the
// file contents, not the extension.
func LoadFile(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	src, err := Decode(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	src.Path = path
	return src, nil
}

// Decode parses a .gltf or .glb document held in memory. root is the
// directory external URIs resolve against.
func Decode(data []byte, root string) (*Source, error) {
	src := &Source{Root: root}

	jsonData := data
	if glb.IsGLB(data) {
		container, err := glb.Parse(data)
		if err != nil {
			return nil, err
		}
		jsonData = container.JSON
		src.BIN = container.BIN
		if src.BIN == nil {
			src.BIN = []byte{}
		}
	}

	doc := new(gltf.Document)
	if err := json.Unmarshal(jsonData, doc); err != nil {
		return nil, fmt.Errorf("parsing glTF JSON: %w", err)
	}
	src.Doc = doc
	return src, nil
}

// Mode returns the store mode matching the container: binary glTF reads
// bufferViews from the embedded chunk, text glTF from external buffers.
func (s *Source) Mode() payload.Mode {
	if s.BIN != nil {
		return payload.ModeEmbeddedBinary
	}
	return payload.ModeExternalBuffers
}

// BuildStore caches every payload the document references and freezes the
// store. The returned error aggregates non-fatal cache failures; the store
// is always usable.
func (s *Source) BuildStore() (*payload.Store, error) {
	b := payload.NewBuilder(s.Mode())
	if s.BIN != nil {
		if err := b.CacheEmbeddedChunk(0, s.BIN); err != nil {
			return nil, err
		}
	}
	cacheErr := b.CacheAll(s.Root, s.Doc)
	return b.Freeze(), cacheErr
}

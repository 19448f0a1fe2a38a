package importer

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	gomath "math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/gltfimport/internal/config"
	"github.com/Faultbox/gltfimport/pkg/glb"
	"github.com/Faultbox/gltfimport/pkg/math"
	"github.com/Faultbox/gltfimport/pkg/payload"
)

var fakePNG = []byte{0x89, 'P', 'N', 'G'}

// createTestBIN returns one triangle (positions then u16 indices) followed
// by a 4-byte image at offset 44.
func createTestBIN() []byte {
	buf := new(bytes.Buffer)
	for _, v := range []float32{0, 0, 0, 1, 2, 3, 4, 5, 6} {
		binary.Write(buf, binary.LittleEndian, gomath.Float32bits(v))
	}
	binary.Write(buf, binary.LittleEndian, []uint16{0, 1, 2, 0}) // last entry is padding
	buf.Write(fakePNG)
	return buf.Bytes()
}

// createTestJSON describes two meshes: a valid triangle and a primitive
// whose indices reference a missing accessor. buffer is the JSON of the
// single buffer entry; image the JSON of the single image entry.
func createTestJSON(buffer, image string) []byte {
	return []byte(`{
  "asset": {"version": "2.0"},
  "buffers": [` + buffer + `],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 6},
    {"buffer": 0, "byteOffset": 44, "byteLength": 4}
  ],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
    {"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
  ],
  "meshes": [
    {"name": "tri", "primitives": [{"attributes": {"POSITION": 0}, "indices": 1}]},
    {"name": "broken", "primitives": [{"attributes": {"POSITION": 0}, "indices": 7}]}
  ],
  "images": [` + image + `]
}`)
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func checkResult(t *testing.T, res *Result) {
	t.Helper()

	if res.JobID == "" {
		t.Error("expected a job ID")
	}
	if len(res.Primitives) != 2 {
		t.Fatalf("expected 2 primitives, got %d", len(res.Primitives))
	}

	tri := res.Primitives[0]
	if tri.Err != nil {
		t.Fatalf("expected triangle to extract, got %v", tri.Err)
	}
	if tri.MeshName != "tri" {
		t.Errorf("expected mesh name 'tri', got %s", tri.MeshName)
	}
	if tri.Attributes.VertexCount() != 3 || tri.Attributes.TriangleCount() != 1 {
		t.Errorf("expected 3 vertices and 1 triangle, got %d and %d",
			tri.Attributes.VertexCount(), tri.Attributes.TriangleCount())
	}
	if tri.Attributes.Positions[2] != (math.Vec3{X: 4, Y: 6, Z: 5}) {
		t.Errorf("expected swapped position {4 6 5}, got %v", tri.Attributes.Positions[2])
	}

	failed := res.Failed()
	if len(failed) != 1 || failed[0].Mesh != 1 {
		t.Fatalf("expected mesh 1 to fail, got %+v", failed)
	}
	if !errors.Is(failed[0].Err, payload.ErrMissingReference) {
		t.Errorf("expected ErrMissingReference, got %v", failed[0].Err)
	}
	if !errors.Is(res.Err(), payload.ErrMissingReference) {
		t.Errorf("expected combined error to carry the failure, got %v", res.Err())
	}

	if len(res.Images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(res.Images))
	}
	if res.Images[0].Err != nil {
		t.Fatalf("expected image to resolve, got %v", res.Images[0].Err)
	}
	if !bytes.Equal(res.Images[0].Bytes, fakePNG) {
		t.Errorf("expected PNG bytes, got %v", res.Images[0].Bytes)
	}
}

func TestImportFile_GLTF(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tri.bin"), createTestBIN())
	writeFile(t, filepath.Join(dir, "tex.png"), fakePNG)
	path := filepath.Join(dir, "tri.gltf")
	writeFile(t, path, createTestJSON(`{"uri": "tri.bin", "byteLength": 48}`, `{"uri": "tex.png"}`))

	res, err := New(config.Default().Import).ImportFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}

	if res.Store.Mode() != payload.ModeExternalBuffers {
		t.Errorf("expected external buffers mode, got %s", res.Store.Mode())
	}
	if res.CacheErr != nil {
		t.Errorf("expected no cache errors, got %v", res.CacheErr)
	}
	checkResult(t, res)
	if res.Images[0].Path != filepath.Join(dir, "tex.png") {
		t.Errorf("expected image path %s, got %s", filepath.Join(dir, "tex.png"), res.Images[0].Path)
	}
	if !res.Images[0].External {
		t.Error("expected image read from its own file to be external")
	}
}

func TestImportFile_BufferViewImageInExternalBuffer(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "scene.bin"), createTestBIN())
	path := filepath.Join(dir, "scene.gltf")
	writeFile(t, path, createTestJSON(`{"uri": "scene.bin", "byteLength": 48}`, `{"bufferView": 2, "mimeType": "image/png"}`))

	res, err := New(config.Default().Import).ImportFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}

	img := res.Images[0]
	if img.Err != nil {
		t.Fatalf("expected image to resolve, got %v", img.Err)
	}
	if !bytes.Equal(img.Bytes, fakePNG) {
		t.Errorf("expected PNG bytes, got %v", img.Bytes)
	}
	// The bytes come from the buffer file but are only a slice of it.
	if img.Path != filepath.Join(dir, "scene.bin") {
		t.Errorf("expected buffer path %s, got %s", filepath.Join(dir, "scene.bin"), img.Path)
	}
	if img.External {
		t.Error("expected bufferView image not to be external")
	}
}

func TestImportFile_GLB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tri.glb")
	json := createTestJSON(`{"byteLength": 48}`, `{"bufferView": 2, "mimeType": "image/png"}`)
	writeFile(t, path, glb.Encode(json, createTestBIN()))

	res, err := New(config.Default().Import).ImportFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}

	if res.Store.Mode() != payload.ModeEmbeddedBinary {
		t.Errorf("expected embedded binary mode, got %s", res.Store.Mode())
	}
	checkResult(t, res)
	if res.Images[0].Path != "" {
		t.Errorf("expected no path for embedded image, got %s", res.Images[0].Path)
	}
	if res.Images[0].External {
		t.Error("expected embedded image not to be external")
	}
	if res.Images[0].MimeType != "image/png" {
		t.Errorf("expected mime type image/png, got %s", res.Images[0].MimeType)
	}
}

func TestImport_MissingBufferFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tri.gltf")
	writeFile(t, path, createTestJSON(`{"uri": "missing.bin", "byteLength": 48}`, `{"uri": "missing.png"}`))

	res, err := New(config.Default().Import).ImportFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}

	if !errors.Is(res.CacheErr, payload.ErrIO) {
		t.Errorf("expected ErrIO cache error, got %v", res.CacheErr)
	}
	for _, p := range res.Primitives {
		if !errors.Is(p.Err, payload.ErrMissingReference) {
			t.Errorf("expected ErrMissingReference for mesh %d, got %v", p.Mesh, p.Err)
		}
	}
	if !errors.Is(res.Images[0].Err, payload.ErrMissingReference) {
		t.Errorf("expected ErrMissingReference for image, got %v", res.Images[0].Err)
	}
}

func TestImport_Options(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tri.glb")
	writeFile(t, path, glb.Encode(createTestJSON(`{"byteLength": 48}`, `{"bufferView": 2}`), createTestBIN()))

	cfg := config.ImportConfig{Workers: 1, LoadImages: false, SkipOptional: true}
	res, err := New(cfg).ImportFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if res.Images != nil {
		t.Errorf("expected no images with load_images off, got %d", len(res.Images))
	}
	set := res.Primitives[0].Attributes
	if set == nil || set.Normals != nil || set.TexcoordSets() != 0 {
		t.Error("expected only positions and indices with skip_optional")
	}
}

func TestImport_Cancelled(t *testing.T) {
	src, err := Decode(glb.Encode(createTestJSON(`{"byteLength": 48}`, `{"bufferView": 2}`), createTestBIN()), "")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(config.Default().Import).Import(ctx, src); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDecode_Errors(t *testing.T) {
	if _, err := Decode([]byte("not json"), ""); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := Decode(glb.Encode(nil, nil)[:12], ""); !errors.Is(err, glb.ErrTruncated) {
		t.Errorf("expected glb.ErrTruncated, got %v", err)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.gltf")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSource_Mode(t *testing.T) {
	src, err := Decode(glb.Encode([]byte(`{"asset": {"version": "2.0"}}`), nil), "")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	// A GLB without a BIN chunk still reads bufferViews from the (empty) chunk.
	if src.Mode() != payload.ModeEmbeddedBinary {
		t.Errorf("expected embedded binary mode, got %s", src.Mode())
	}
}

package main

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/gltfimport/internal/config"
	"github.com/Faultbox/gltfimport/internal/importer"
)

func encodePNG(t *testing.T) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

func TestImageFileName(t *testing.T) {
	pngData := encodePNG(t)

	tests := []struct {
		name string
		img  importer.Image
		want string
	}{
		{"external file", importer.Image{Index: 1, Path: "/models/textures/wood.jpg", External: true}, "001_wood.jpg"},
		{"bufferView in external buffer", importer.Image{Index: 0, Path: "/models/scene.bin", MimeType: "image/png", Bytes: pngData}, "image_000.png"},
		{"named with extension", importer.Image{Index: 2, Name: "albedo.png"}, "002_albedo.png"},
		{"named sniffed", importer.Image{Index: 3, Name: "albedo", Bytes: pngData}, "003_albedo.png"},
		{"unnamed mime", importer.Image{Index: 4, MimeType: "image/ktx2", Bytes: []byte{1, 2}}, "image_004.ktx2"},
		{"unnamed unknown", importer.Image{Index: 5, Bytes: []byte{1, 2}}, "image_005.bin"},
		{"name with dirs", importer.Image{Index: 6, Name: "../../etc/passwd"}, "006_passwd.bin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := imageFileName(tt.img)
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 24); got != "short" {
		t.Errorf("expected short, got %s", got)
	}
	if got := truncate("a_really_long_mesh_name_here", 10); got != "a_reall..." {
		t.Errorf("expected a_reall..., got %s", got)
	}
}

func TestCmdConfig_Save(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	t.Setenv("APPDATA", dir)

	target := filepath.Join(dir, "exported", "gltfimport.yaml")
	if err := cmdConfig([]string{"-workers", "3", "-save", "-save-to", target}); err != nil {
		t.Fatalf("cmdConfig failed: %v", err)
	}

	for _, path := range []string{config.DefaultPath(), target} {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("expected config written to %s: %v", path, err)
		}
		if !strings.Contains(string(data), "workers: 3") {
			t.Errorf("expected flag override in %s, got:\n%s", path, data)
		}
	}
}

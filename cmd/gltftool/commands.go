package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/gltfimport/internal/config"
	"github.com/Faultbox/gltfimport/internal/importer"
	"github.com/Faultbox/gltfimport/internal/logger"
	"github.com/Faultbox/gltfimport/pkg/payload"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

func cmdInfo(args []string) error {
	_, path, err := setup("info", args)
	if err != nil {
		return err
	}

	src, err := importer.LoadFile(path)
	if err != nil {
		return err
	}
	store, cacheErr := src.BuildStore()
	doc := src.Doc

	fmt.Printf("File:        %s\n", path)
	fmt.Printf("Version:     %s\n", doc.Asset.Version)
	if doc.Asset.Generator != "" {
		fmt.Printf("Generator:   %s\n", doc.Asset.Generator)
	}
	fmt.Printf("Mode:        %s\n", store.Mode())
	if src.BIN != nil {
		fmt.Printf("BIN chunk:   %d bytes\n", len(src.BIN))
	}
	fmt.Println()
	fmt.Printf("Buffers:     %d (%d cached)\n", len(doc.Buffers), store.Count(payload.OriginExternalBuffer))
	fmt.Printf("BufferViews: %d\n", len(doc.BufferViews))
	fmt.Printf("Accessors:   %d\n", len(doc.Accessors))
	fmt.Printf("Meshes:      %d\n", len(doc.Meshes))
	fmt.Printf("Images:      %d (%d external cached)\n", len(doc.Images), store.Count(payload.OriginExternalImage))

	if errs := multierr.Errors(cacheErr); len(errs) > 0 {
		fmt.Println()
		fmt.Println("Cache failures:")
		for _, e := range errs {
			fmt.Printf("  %v\n", e)
		}
	}
	return nil
}

func cmdMeshes(ctx context.Context, args []string) error {
	cfg, path, err := setup("meshes", args)
	if err != nil {
		return err
	}
	cfg.Import.LoadImages = false

	res, err := importer.New(cfg.Import).ImportFile(ctx, path)
	if err != nil {
		return err
	}

	fmt.Printf("%-6s %-4s %-24s %8s %8s %4s %s\n", "MESH", "PRIM", "NAME", "VERTS", "TRIS", "UVS", "BOUNDS")
	for _, p := range res.Primitives {
		if p.Err != nil {
			fmt.Printf("%-6d %-4d %-24s FAILED: %v\n", p.Mesh, p.Index, truncate(p.MeshName, 24), p.Err)
			continue
		}
		set := p.Attributes
		lo, hi := set.Bounds()
		fmt.Printf("%-6d %-4d %-24s %8d %8d %4d [%.3g %.3g %.3g]..[%.3g %.3g %.3g]\n",
			p.Mesh, p.Index, truncate(p.MeshName, 24),
			set.VertexCount(), set.TriangleCount(), set.TexcoordSets(),
			lo.X, lo.Y, lo.Z, hi.X, hi.Y, hi.Z)
		for semantic, reason := range set.Skipped {
			fmt.Printf("%-11s skipped %s: %v\n", "", semantic, reason)
		}
	}

	if failed := res.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d primitives failed", len(failed), len(res.Primitives))
	}
	return nil
}

func cmdImages(ctx context.Context, args []string) error {
	cfg, path, err := setup("images", args)
	if err != nil {
		return err
	}
	cfg.Import.LoadImages = true

	res, err := importer.New(cfg.Import).ImportFile(ctx, path)
	if err != nil {
		return err
	}

	fmt.Printf("%-5s %-24s %-12s %10s %-6s %s\n", "INDEX", "NAME", "MIME", "BYTES", "FORMAT", "SIZE")
	for _, img := range res.Images {
		if img.Err != nil {
			fmt.Printf("%-5d %-24s FAILED: %v\n", img.Index, truncate(img.Name, 24), img.Err)
			continue
		}
		format, size := "?", "?"
		if c, f, err := image.DecodeConfig(bytes.NewReader(img.Bytes)); err == nil {
			format = f
			size = fmt.Sprintf("%dx%d", c.Width, c.Height)
		}
		fmt.Printf("%-5d %-24s %-12s %10d %-6s %s\n",
			img.Index, truncate(img.Name, 24), img.MimeType, len(img.Bytes), format, size)
	}
	return nil
}

func cmdExtract(ctx context.Context, args []string) error {
	cfg, path, err := setup("extract", args)
	if err != nil {
		return err
	}
	cfg.Import.LoadImages = true

	res, err := importer.New(cfg.Import).ImportFile(ctx, path)
	if err != nil {
		return err
	}

	outDir := cfg.Output.ImageDir
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	var written int
	var errs error
	for _, img := range res.Images {
		if img.Err != nil {
			logger.Warn("image not extracted", zap.Int("image", img.Index), zap.Error(img.Err))
			errs = multierr.Append(errs, fmt.Errorf("image %d: %w", img.Index, img.Err))
			continue
		}
		name := imageFileName(img)
		outPath := filepath.Join(outDir, name)
		if err := os.WriteFile(outPath, img.Bytes, 0644); err != nil {
			logger.Error("image write failed", zap.String("path", outPath), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("writing %s: %w", outPath, err))
			continue
		}
		logger.Debug("image written", zap.Int("image", img.Index), zap.String("path", outPath))
		fmt.Printf("Extracted: %s (%d bytes)\n", outPath, len(img.Bytes))
		written++
	}

	logger.Info("extract finished",
		zap.Int("written", written),
		zap.Int("images", len(res.Images)),
		zap.String("dir", outDir))
	fmt.Printf("\nExtracted %d of %d images to %s\n", written, len(res.Images), outDir)
	return errs
}

func cmdConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	save := fs.Bool("save", false, "Write the effective config to "+config.DefaultPath())
	saveTo := fs.String("save-to", "", "Write the effective config to a file")
	fs.Parse(args)

	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}

	data, err := cfg.YAML()
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	fmt.Print(string(data))

	if *save {
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Printf("\nSaved: %s\n", config.DefaultPath())
	}
	if *saveTo != "" {
		if err := cfg.SaveTo(*saveTo); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Printf("\nSaved: %s\n", *saveTo)
	}
	return nil
}

// imageFileName picks an output file name: the source file name for
// images stored in their own file, else the image name or index plus an
// extension sniffed from the payload.
func imageFileName(img importer.Image) string {
	if img.External && img.Path != "" {
		return fmt.Sprintf("%03d_%s", img.Index, filepath.Base(img.Path))
	}

	base := fmt.Sprintf("image_%03d", img.Index)
	if img.Name != "" {
		base = fmt.Sprintf("%03d_%s", img.Index, filepath.Base(filepath.FromSlash(img.Name)))
	}
	if filepath.Ext(base) != "" {
		return base
	}

	ext := "bin"
	if _, format, err := image.DecodeConfig(bytes.NewReader(img.Bytes)); err == nil {
		ext = format
	} else if mime, ok := strings.CutPrefix(img.MimeType, "image/"); ok {
		ext = mime
	}
	return base + "." + ext
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// Package importer runs an import job: it loads a glTF document, caches
// its payloads, and extracts every mesh primitive and image.
package importer

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/Faultbox/gltfimport/internal/config"
	"github.com/Faultbox/gltfimport/internal/logger"
	"github.com/Faultbox/gltfimport/pkg/mesh"
	"github.com/Faultbox/gltfimport/pkg/payload"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Primitive is the outcome of extracting one mesh primitive.
type Primitive struct {
	Mesh       int
	Index      int
	MeshName   string
	Attributes *mesh.AttributeSet // nil when Err is set
	Err        error
}

// Image is the raw payload of one document image.
type Image struct {
	Index    int
	Name     string
	MimeType string
	Path     string // File the bytes were read from, empty for the embedded chunk and data URIs
	External bool   // Bytes are a whole image file rather than a bufferView slice
	Bytes    []byte
	Err      error
}

// Result holds everything an import job produced.
type Result struct {
	JobID      string
	Source     *Source
	Store      *payload.Store
	Primitives []Primitive
	Images     []Image
	CacheErr   error // Aggregated non-fatal payload cache failures
}

// Failed returns the primitives that could not be extracted.
func (r *Result) Failed() []Primitive {
	var failed []Primitive
	for _, p := range r.Primitives {
		if p.Err != nil {
			failed = append(failed, p)
		}
	}
	return failed
}

// Err combines every primitive and image failure, or nil.
func (r *Result) Err() error {
	var err error
	for _, p := range r.Primitives {
		if p.Err != nil {
			err = multierr.Append(err, fmt.Errorf("mesh %d primitive %d: %w", p.Mesh, p.Index, p.Err))
		}
	}
	for _, img := range r.Images {
		if img.Err != nil {
			err = multierr.Append(err, fmt.Errorf("image %d: %w", img.Index, img.Err))
		}
	}
	return err
}

// Importer runs import jobs with a fixed configuration.
type Importer struct {
	cfg config.ImportConfig
}

// New creates an importer.
func New(cfg config.ImportConfig) *Importer {
	return &Importer{cfg: cfg}
}

func (im *Importer) workers() int {
	if im.cfg.Workers > 0 {
		return im.cfg.Workers
	}
	return runtime.NumCPU()
}

// ImportFile loads path and imports it.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	src, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return im.Import(ctx, src)
}

// Import caches the payloads of src and extracts its primitives and images.
// Per-primitive and per-image failures are recorded in the result; the
// returned error is reserved for cancellation and unusable input.
func (im *Importer) Import(ctx context.Context, src *Source) (*Result, error) {
	if src == nil || src.Doc == nil {
		return nil, fmt.Errorf("%w: no document", payload.ErrMissingReference)
	}

	res := &Result{
		JobID:  uuid.NewString(),
		Source: src,
	}
	log := logger.ForJob(res.JobID)
	start := time.Now()

	log.Info("import started",
		zap.String("path", src.Path),
		zap.Stringer("mode", src.Mode()),
		zap.Int("meshes", len(src.Doc.Meshes)),
		zap.Int("images", len(src.Doc.Images)))

	store, cacheErr := src.BuildStore()
	if store == nil {
		return nil, cacheErr
	}
	res.Store = store
	res.CacheErr = cacheErr
	for _, err := range multierr.Errors(cacheErr) {
		log.Warn("payload not cached", zap.Error(err))
	}

	if err := im.extractPrimitives(ctx, res, log); err != nil {
		return nil, err
	}

	if im.cfg.LoadImages {
		if err := im.resolveImages(ctx, res, log); err != nil {
			return nil, err
		}
	}

	log.Info("import finished",
		zap.Int("primitives", len(res.Primitives)),
		zap.Int("failed", len(res.Failed())),
		zap.Int("images", len(res.Images)),
		zap.Duration("elapsed", time.Since(start)))

	return res, nil
}

// extractPrimitives extracts every primitive of every mesh in parallel.
// Cancellation is checked before each primitive.
func (im *Importer) extractPrimitives(ctx context.Context, res *Result, log *zap.Logger) error {
	doc := res.Source.Doc
	for m, msh := range doc.Meshes {
		if msh == nil {
			continue
		}
		for p := range msh.Primitives {
			res.Primitives = append(res.Primitives, Primitive{Mesh: m, Index: p, MeshName: msh.Name})
		}
	}

	ex := mesh.NewExtractor(res.Store)
	ex.RequiredOnly = im.cfg.SkipOptional
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.workers())

	for i := range res.Primitives {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out := &res.Primitives[i]
			prim := doc.Meshes[out.Mesh].Primitives[out.Index]

			set, err := ex.Extract(doc, prim)
			if err != nil {
				out.Err = err
				log.Warn("primitive failed",
					zap.Int("mesh", out.Mesh),
					zap.Int("primitive", out.Index),
					zap.Error(err))
				return nil
			}

			for semantic, reason := range set.Skipped {
				log.Debug("optional attribute skipped",
					zap.Int("mesh", out.Mesh),
					zap.Int("primitive", out.Index),
					zap.String("attribute", semantic),
					zap.Error(reason))
			}
			out.Attributes = set
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// resolveImages copies out the raw bytes of every image.
func (im *Importer) resolveImages(ctx context.Context, res *Result, log *zap.Logger) error {
	doc := res.Source.Doc
	res.Images = make([]Image, 0, len(doc.Images))
	for i, img := range doc.Images {
		if err := ctx.Err(); err != nil {
			return err
		}
		out := Image{Index: i}
		if img != nil {
			out.Name = img.Name
			out.MimeType = img.MimeType
			out.External = img.URI != ""
		}
		out.Bytes, out.Path, out.Err = payload.ResolveImage[uint8](res.Store, doc, i)
		if out.Err != nil {
			log.Warn("image not resolved", zap.Int("image", i), zap.Error(out.Err))
		}
		res.Images = append(res.Images, out)
	}
	return nil
}

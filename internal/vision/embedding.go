package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/logger"
)

// EmbeddingEngine implements Engine on top of the face embedding server and
// an HNSW nearest-neighbour model. Confidence is cosine distance * 100.
type EmbeddingEngine struct {
	client *EmbeddingClient
	path   string
	log    *logger.Logger

	mu    sync.RWMutex
	model *Model
}

// NewEmbeddingEngine creates an engine persisting its model at modelPath and
// loads an existing model if there is one.
func NewEmbeddingEngine(client *EmbeddingClient, modelPath string) *EmbeddingEngine {
	e := &EmbeddingEngine{
		client: client,
		path:   modelPath,
		log:    logger.Named("vision"),
	}
	if err := e.Reload(); err != nil && !errors.Is(err, ErrModelNotFound) {
		e.log.Warn().Err(err).Str("path", modelPath).Msg("failed to load model")
	}
	return e
}

// DetectFaces returns the bounding boxes of faces in frame, most confident first.
// Overlapping detections of the same face are collapsed.
func (e *EmbeddingEngine) DetectFaces(ctx context.Context, frame image.Image) ([]image.Rectangle, error) {
	resp, err := e.client.FaceEmbeddingsImage(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	faces := suppressDuplicates(resp.Faces, DuplicateIoU)
	bounds := frame.Bounds()
	rects := make([]image.Rectangle, 0, len(faces))
	for _, f := range faces {
		r := f.Rect().Add(bounds.Min).Intersect(bounds)
		if r.Empty() {
			continue
		}
		rects = append(rects, r)
	}
	return rects, nil
}

// Recognize embeds the most prominent face of crop and returns its nearest identity
func (e *EmbeddingEngine) Recognize(ctx context.Context, crop image.Image) (Match, error) {
	model := e.current()
	if model == nil {
		return Match{}, ErrModelNotFound
	}

	resp, err := e.client.FaceEmbeddingsImage(ctx, crop)
	if err != nil {
		return Match{}, fmt.Errorf("recognize: %w", err)
	}
	best, ok := bestFace(resp.Faces)
	if !ok {
		return Match{}, ErrNoMatch
	}

	identityID, distance, ok := model.Nearest(best.Embedding)
	if !ok {
		return Match{}, ErrNoMatch
	}
	return Match{IdentityID: identityID, Confidence: distance * 100}, nil
}

// Train builds a new model from samples and replaces the current one
func (e *EmbeddingEngine) Train(ctx context.Context, samples []Sample) error {
	return e.TrainWithProgress(ctx, samples, nil)
}

// TrainWithProgress is Train with a callback invoked after each sample.
// Samples in which no face is found are skipped.
func (e *EmbeddingEngine) TrainWithProgress(ctx context.Context, samples []Sample, progress func(done int)) error {
	if len(samples) == 0 {
		return fmt.Errorf("%w: no samples", ErrTrainingFailed)
	}

	embeddings := make([]labeledEmbedding, 0, len(samples))
	var skipped int
	for i, s := range samples {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, err := e.client.FaceEmbeddings(ctx, s.Data)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTrainingFailed, err)
		}
		if best, ok := bestFace(resp.Faces); ok {
			embeddings = append(embeddings, labeledEmbedding{IdentityID: s.IdentityID, Embedding: best.Embedding})
		} else {
			skipped++
		}

		if progress != nil {
			progress(i + 1)
		}
	}

	if skipped > 0 {
		e.log.Warn().Int("skipped", skipped).Int("total", len(samples)).Msg("samples without a detectable face")
	}
	if len(embeddings) == 0 {
		return fmt.Errorf("%w: no usable samples", ErrTrainingFailed)
	}

	model, err := buildModel(embeddings)
	if err != nil {
		return err
	}
	if err := model.Save(e.path); err != nil {
		return fmt.Errorf("%w: %w", ErrTrainingFailed, err)
	}

	e.mu.Lock()
	e.model = model
	e.mu.Unlock()

	meta := model.Metadata()
	e.log.Info().
		Str("build_id", meta.BuildID).
		Int("samples", meta.SampleCount).
		Int("identities", meta.Identities).
		Msg("model trained")
	return nil
}

// HasModel reports whether a model is loaded
func (e *EmbeddingEngine) HasModel() bool {
	return e.current() != nil
}

// Reload loads the persisted model. A missing model clears the current one;
// any other failure keeps it.
func (e *EmbeddingEngine) Reload() error {
	model, err := LoadModel(e.path)
	if errors.Is(err, ErrModelNotFound) {
		e.mu.Lock()
		e.model = nil
		e.mu.Unlock()
		return err
	}
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.model = model
	e.mu.Unlock()
	return nil
}

// Metadata returns the metadata of the loaded model
func (e *EmbeddingEngine) Metadata() (ModelMetadata, bool) {
	model := e.current()
	if model == nil {
		return ModelMetadata{}, false
	}
	return model.Metadata(), true
}

func (e *EmbeddingEngine) current() *Model {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model
}

func bestFace(faces []FaceDetection) (FaceDetection, bool) {
	var best FaceDetection
	found := false
	for _, f := range faces {
		if len(f.Embedding) == 0 {
			continue
		}
		if !found || f.DetScore > best.DetScore {
			best = f
			found = true
		}
	}
	return best, found
}

var _ Engine = (*EmbeddingEngine)(nil)

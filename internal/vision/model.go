package vision

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/coder/hnsw"
	"github.com/google/uuid"
)

const (
	// HNSWMaxNeighbors is the M parameter of the recognition graph
	HNSWMaxNeighbors = 16

	modelMetadataVersion = 2
)

// ModelMetadata describes a persisted model
type ModelMetadata struct {
	BuildID     string    `json:"build_id"`
	SampleCount int       `json:"sample_count"`
	Identities  int       `json:"identities"`
	Dim         int       `json:"dim"`
	BuildTime   time.Time `json:"build_time"`
	Version     int       `json:"version"`
}

// labeledEmbedding is one training vector
type labeledEmbedding struct {
	IdentityID int64
	Embedding  []float32
}

// Model is an HNSW graph over face embeddings with a node -> identity label map.
// It is immutable once built.
type Model struct {
	graph  *hnsw.Graph[int64]
	labels map[int64]int64
	meta   ModelMetadata
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors)
	g.Distance = hnsw.CosineDistance
	return g
}

// buildModel builds a model from embeddings. Node keys are sequence numbers.
func buildModel(embeddings []labeledEmbedding) (*Model, error) {
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings", ErrTrainingFailed)
	}

	g := newGraph()
	labels := make(map[int64]int64, len(embeddings))
	identities := make(map[int64]struct{})
	dim := len(embeddings[0].Embedding)

	for i, e := range embeddings {
		if len(e.Embedding) != dim {
			return nil, fmt.Errorf("%w: embedding %d has dimension %d, expected %d", ErrTrainingFailed, i, len(e.Embedding), dim)
		}
		key := int64(i + 1)
		g.Add(hnsw.MakeNode(key, e.Embedding))
		labels[key] = e.IdentityID
		identities[e.IdentityID] = struct{}{}
	}

	return &Model{
		graph:  g,
		labels: labels,
		meta: ModelMetadata{
			BuildID:     uuid.NewString(),
			SampleCount: len(embeddings),
			Identities:  len(identities),
			Dim:         dim,
			BuildTime:   time.Now().UTC(),
			Version:     modelMetadataVersion,
		},
	}, nil
}

// Nearest returns the identity of the closest vector and its cosine distance.
func (m *Model) Nearest(query []float32) (int64, float64, bool) {
	if len(query) != m.meta.Dim {
		return 0, 0, false
	}
	neighbors := m.graph.Search(query, 1)
	if len(neighbors) == 0 {
		return 0, 0, false
	}
	n := neighbors[0]
	identityID, ok := m.labels[n.Key]
	if !ok {
		return 0, 0, false
	}
	return identityID, float64(hnsw.CosineDistance(query, n.Value)), true
}

// Metadata returns the model metadata
func (m *Model) Metadata() ModelMetadata {
	return m.meta
}

// modelMagic starts every model file; the trailing digit is the format version.
const modelMagic = "FAMODEL1"

// modelHeader precedes the exported graph in a model file
type modelHeader struct {
	Meta   ModelMetadata
	Labels map[int64]int64
}

// Save writes metadata, labels and graph as one file at path. The file is
// written under a temporary name and renamed into place, so a reader sees
// either the previous model or this one, never a mix.
func (m *Model) Save(path string) error {
	var header bytes.Buffer
	if err := gob.NewEncoder(&header).Encode(modelHeader{Meta: m.meta, Labels: m.labels}); err != nil {
		return fmt.Errorf("failed to encode model header: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(modelMagic)
	if err := binary.Write(&buf, binary.LittleEndian, uint32(header.Len())); err != nil {
		return fmt.Errorf("failed to write header length: %w", err)
	}
	buf.Write(header.Bytes())
	if err := m.graph.Export(&buf); err != nil {
		return fmt.Errorf("failed to export HNSW graph: %w", err)
	}

	return writeFileAtomic(path, buf.Bytes())
}

// LoadModel loads a model saved by Save. ErrModelNotFound is returned when
// there is no file at path.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrModelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	r := bytes.NewReader(data)
	magic := make([]byte, len(modelMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != modelMagic {
		return nil, fmt.Errorf("%s is not a model file", path)
	}

	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, fmt.Errorf("failed to read header length: %w", err)
	}
	if int64(size) > int64(r.Len()) {
		return nil, fmt.Errorf("truncated model header: want %d bytes, have %d", size, r.Len())
	}
	headerData := make([]byte, size)
	if _, err := io.ReadFull(r, headerData); err != nil {
		return nil, fmt.Errorf("failed to read model header: %w", err)
	}

	var header modelHeader
	if err := gob.NewDecoder(bytes.NewReader(headerData)).Decode(&header); err != nil {
		return nil, fmt.Errorf("failed to decode model header: %w", err)
	}
	if header.Meta.Version != modelMetadataVersion {
		return nil, fmt.Errorf("unsupported model version %d", header.Meta.Version)
	}
	if len(header.Labels) != header.Meta.SampleCount {
		return nil, fmt.Errorf("model has %d labels for %d samples", len(header.Labels), header.Meta.SampleCount)
	}

	g := newGraph()
	if err := g.Import(r); err != nil {
		return nil, fmt.Errorf("failed to import HNSW graph: %w", err)
	}
	if g.Len() != header.Meta.SampleCount {
		return nil, fmt.Errorf("model graph has %d nodes for %d samples", g.Len(), header.Meta.SampleCount)
	}

	return &Model{graph: g, labels: header.Labels, meta: header.Meta}, nil
}

// writeFileAtomic writes data to path.tmp, syncs it and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

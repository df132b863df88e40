package vecindex

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	manifestFile = "manifest.json"
	vectorFile   = "vectors.f32"

	indexVersion = 1
)

// Manifest describes a persisted index and how to interpret its vector file.
type Manifest struct {
	IndexVersion int    `json:"index_version"`
	BuildID      string `json:"build_id"`
	CreatedAt    string `json:"created_at"`
	Model        string `json:"model"`
	Dim          int    `json:"dim"`
	Count        int    `json:"count"`
	Normalized   bool   `json:"normalized"`
	VectorFile   string `json:"vector_file"`
}

// Save writes the index to dir as a manifest plus a little-endian float32
// vector file. Offline operation, not called on the serving path.
func (f *Flat) Save(dir, model string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create index dir %s: %w", dir, err)
	}

	m := Manifest{
		IndexVersion: indexVersion,
		BuildID:      uuid.NewString(),
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		Model:        model,
		Dim:          f.dim,
		Count:        f.count,
		Normalized:   true,
		VectorFile:   vectorFile,
	}
	mb, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), mb, 0o644); err != nil {
		return fmt.Errorf("cannot write manifest: %w", err)
	}

	vf, err := os.Create(filepath.Join(dir, m.VectorFile))
	if err != nil {
		return fmt.Errorf("cannot create vector file: %w", err)
	}
	if err := binary.Write(vf, binary.LittleEndian, f.vectors); err != nil {
		_ = vf.Close()
		return fmt.Errorf("cannot write vectors: %w", err)
	}
	return vf.Close()
}

// Load reads an index from dir. The loaded index is immutable.
func Load(dir string) (*Flat, error) {
	manifestPath := filepath.Join(dir, manifestFile)
	b, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read manifest %s: %w", manifestPath, err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest JSON %s: %w", manifestPath, err)
	}
	if m.Dim <= 0 || m.Count <= 0 {
		return nil, fmt.Errorf("invalid manifest: dim=%d count=%d", m.Dim, m.Count)
	}
	if m.VectorFile == "" {
		m.VectorFile = vectorFile
	}

	path := filepath.Join(dir, m.VectorFile)
	vf, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open vector file %s: %w", path, err)
	}
	defer vf.Close()

	st, err := vf.Stat()
	if err != nil {
		return nil, fmt.Errorf("cannot stat vector file %s: %w", path, err)
	}
	expected := int64(m.Count * m.Dim * 4)
	if st.Size() != expected {
		return nil, fmt.Errorf("vector file size mismatch: got %d want %d (count=%d dim=%d)",
			st.Size(), expected, m.Count, m.Dim)
	}

	vectors := make([]float32, m.Count*m.Dim)
	if err := binary.Read(io.LimitReader(vf, expected), binary.LittleEndian, vectors); err != nil {
		return nil, fmt.Errorf("cannot read vectors from %s: %w", path, err)
	}

	return &Flat{dim: m.Dim, count: m.Count, vectors: vectors}, nil
}

// LoadManifest reads only the manifest from dir, for inspection and for
// verifying catalog/index alignment before serving.
func LoadManifest(dir string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return m, fmt.Errorf("cannot read manifest: %w", err)
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("invalid manifest JSON: %w", err)
	}
	return m, nil
}

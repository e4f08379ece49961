// Package results persists benchmark summaries so that charts can be
// rendered independently of the run that produced them.
package results

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/weiihann/headbench/harness"
)

const (
	// DefaultDir is the output directory used when none is configured.
	DefaultDir = "results"
	// ResultsFile is the name of the persisted ResultSet.
	ResultsFile = "benchmark-results.json"
	// SamplesFile holds the raw per-trial samples when retention is on.
	SamplesFile = "benchmark-samples.json"
)

// ErrMissingArtifact is returned when the results file is absent or does
// not hold a well-formed ResultSet.
var ErrMissingArtifact = errors.New("missing or malformed results artifact")

// Store reads and writes run artifacts in a single directory.
type Store struct {
	fs  afero.Fs
	dir string
}

// NewStore returns a Store rooted at dir on fs. An empty dir means
// DefaultDir.
func NewStore(fs afero.Fs, dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}

	return &Store{fs: fs, dir: dir}
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path joins name onto the output directory.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Fs returns the filesystem the store writes to.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// EnsureDir creates the output directory if it does not exist yet.
func (s *Store) EnsureDir() error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", s.dir, err)
	}

	return nil
}

// Save validates set and writes it as indented JSON, replacing any
// previous results file. It returns the path written.
func (s *Store) Save(set harness.ResultSet) (string, error) {
	if err := set.Validate(); err != nil {
		return "", fmt.Errorf("save results: %w", err)
	}

	path := s.Path(ResultsFile)
	if err := s.writeJSON(path, set); err != nil {
		return "", err
	}

	return path, nil
}

// SaveSamples writes the raw samples of a run in trial order.
func (s *Store) SaveSamples(samples []harness.RawSample) (string, error) {
	path := s.Path(SamplesFile)
	if err := s.writeJSON(path, samples); err != nil {
		return "", err
	}

	return path, nil
}

func (s *Store) writeJSON(path string, v any) error {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	if err := afero.WriteFile(s.fs, path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

// Load reads the results file. Any problem with it, including absence,
// is reported as ErrMissingArtifact.
func (s *Store) Load() (harness.ResultSet, error) {
	path := s.Path(ResultsFile)

	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist, run the benchmark first",
				ErrMissingArtifact, path)
		}

		return nil, fmt.Errorf("%w: read %s: %v", ErrMissingArtifact, path, err)
	}

	set, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingArtifact, path, err)
	}

	return set, nil
}

// record mirrors harness.SummaryRecord with pointer fields so absent keys
// can be told apart from zero values.
type record struct {
	Mode     *string `json:"mode"`
	CPUTotal *int64  `json:"cpuTotal"`
	Memory   *int64  `json:"memory"`
	TimeMs   *int64  `json:"timeMs"`
}

func decode(r io.Reader) (harness.ResultSet, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var raw []record
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}

	if dec.More() {
		return nil, fmt.Errorf("trailing data after results array")
	}

	set := make(harness.ResultSet, 0, len(raw))

	for i, rec := range raw {
		switch {
		case rec.Mode == nil:
			return nil, fmt.Errorf("record %d: missing mode", i)
		case rec.CPUTotal == nil:
			return nil, fmt.Errorf("record %d: missing cpuTotal", i)
		case rec.Memory == nil:
			return nil, fmt.Errorf("record %d: missing memory", i)
		case rec.TimeMs == nil:
			return nil, fmt.Errorf("record %d: missing timeMs", i)
		}

		set = append(set, harness.SummaryRecord{
			Mode:     harness.Mode(*rec.Mode),
			CPUTotal: *rec.CPUTotal,
			Memory:   *rec.Memory,
			TimeMs:   *rec.TimeMs,
		})
	}

	if err := set.Validate(); err != nil {
		return nil, err
	}

	return set, nil
}

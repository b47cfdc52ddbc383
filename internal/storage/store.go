package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/streamheat/internal/column"
	"github.com/san-kum/streamheat/internal/mcmc"
)

var (
	// ErrNotFound indicates no stored run matches an id.
	ErrNotFound = errors.New("storage: run not found")

	// ErrAmbiguous indicates an id prefix matching several runs.
	ErrAmbiguous = errors.New("storage: ambiguous run id")
)

const (
	metadataFile  = "metadata.json"
	sensorsFile   = "sensors.csv"
	quantilesFile = "quantiles.csv"
	samplesFile   = "samples.csv"
)

// Kind distinguishes forward runs from calibrations.
type Kind string

const (
	KindForward     Kind = "forward"
	KindCalibration Kind = "calibration"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	Cells        int       `json:"cells"`
	Times        int       `json:"times"`
	Depth        float64   `json:"depth"`
	SensorDepths []float64 `json:"sensor_depths"`

	// Layers are the simulated layers, or the best sample of a calibration.
	Layers     []column.Layer `json:"layers"`
	BestEnergy float64        `json:"best_energy,omitempty"`
	BestSigma2 float64        `json:"best_sigma2,omitempty"`

	MCMC             *mcmc.Config `json:"mcmc,omitempty"`
	Acceptance       []float64    `json:"acceptance,omitempty"`
	Converged        bool         `json:"converged,omitempty"`
	BurnInIterations int          `json:"burn_in_iterations,omitempty"`
	RHat             [][]float64  `json:"rhat,omitempty"`
	// ParamQuantiles are indexed [layer][param][level] for MCMC.Quantiles.
	ParamQuantiles [][][]float64 `json:"param_quantiles,omitempty"`

	Metrics map[string]float64 `json:"metrics"`
}

// newRun creates the directory of a fresh run.
func (s *Store) newRun(kind Kind, name string) (RunMetadata, string, error) {
	meta := RunMetadata{
		ID:        uuid.NewString(),
		Name:      name,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
		Metrics:   map[string]float64{},
	}
	dir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return RunMetadata{}, "", err
	}
	return meta, dir, nil
}

func writeMetadata(dir string, meta *RunMetadata) error {
	f, err := os.Create(filepath.Join(dir, metadataFile))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// List returns the stored runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := readMetadata(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

// Load reads the metadata of a run. id may be any unique prefix.
func (s *Store) Load(id string) (*RunMetadata, error) {
	dir, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	return readMetadata(dir)
}

func readMetadata(dir string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", dir, err)
	}
	return &meta, nil
}

// resolve maps an id or unique id prefix to its run directory.
func (s *Store) resolve(id string) (string, error) {
	if id == "" {
		return "", ErrNotFound
	}
	dir := filepath.Join(s.baseDir, id)
	if _, err := os.Stat(filepath.Join(dir, metadataFile)); err == nil {
		return dir, nil
	}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return "", err
	}
	var match string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), id) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("%w: %s", ErrAmbiguous, id)
		}
		match = entry.Name()
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return filepath.Join(s.baseDir, match), nil
}

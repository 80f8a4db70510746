package scan

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/signalrun/internal/market"
)

// Batch is one cycle's worth of input as read from a snapshot file
type Batch struct {
	Context market.MarketContext `yaml:"context" json:"context"`
	AsOf    time.Time            `yaml:"as_of,omitempty" json:"as_of,omitempty"`
	Symbols []Input              `yaml:"symbols" json:"symbols"`
}

// ReadBatch decodes a YAML snapshot. Unknown keys are rejected.
func ReadBatch(r io.Reader) (*Batch, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var b Batch
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode batch: %w", err)
	}
	if len(b.Symbols) == 0 {
		return nil, fmt.Errorf("batch has no symbols")
	}
	return &b, nil
}

// LoadBatch reads a snapshot file from disk
func LoadBatch(path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch %s: %w", path, err)
	}
	defer f.Close()
	return ReadBatch(f)
}

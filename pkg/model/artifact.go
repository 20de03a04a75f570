package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

const fileMode = 0600

// Artifact is a trained tree-ensemble classifier as exported for the
// dashboard: per-feature importance scores, optionally with the feature
// names they were trained on.
type Artifact struct {
	Algorithm          string    `json:"algorithm" yaml:"algorithm"`
	Version            string    `json:"version,omitempty" yaml:"version,omitempty"`
	FeatureNames       []string  `json:"feature_names,omitempty" yaml:"feature_names,omitempty"`
	FeatureImportances []float64 `json:"feature_importances" yaml:"feature_importances"`
}

// Validate checks the importance vector and, when present, the names.
func (a *Artifact) Validate() error {
	if a == nil {
		return errors.New("artifact required")
	}
	if len(a.FeatureImportances) == 0 {
		return errors.New("artifact has no feature importances")
	}
	for i, v := range a.FeatureImportances {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("invalid importance at position %d: %v", i, v)
		}
	}
	if len(a.FeatureNames) > 0 && len(a.FeatureNames) != len(a.FeatureImportances) {
		return fmt.Errorf("%w: artifact has %d names for %d importances",
			ErrFeatureMismatch, len(a.FeatureNames), len(a.FeatureImportances))
	}
	return nil
}

// Decode reads and validates an artifact document.
func Decode(r io.Reader) (*Artifact, error) {
	d := json.NewDecoder(r)
	d.DisallowUnknownFields()

	var a Artifact
	if err := d.Decode(&a); err != nil {
		return nil, fmt.Errorf("error decoding artifact: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// ReadFile decodes the artifact stored at path.
func ReadFile(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening artifact %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// WriteFile stores the artifact at path.
func WriteFile(path string, a *Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	b, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", path, err)
	}
	return nil
}

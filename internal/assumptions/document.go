// Package assumptions resolves risk profiles, inflation and fees from
// built-in defaults, a local file or a remote document, with a TTL cache.
package assumptions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects the document decoder.
type Format int

const (
	FormatAuto Format = iota
	FormatJSON
	FormatYAML
)

// ErrInvalidDocument wraps every document validation failure.
var ErrInvalidDocument = errors.New("assumptions: invalid document")

// ProfileEntry is one risk profile as published in a document.
type ProfileEntry struct {
	Mean float64 `json:"mean" yaml:"mean"`
	Vol  float64 `json:"vol"  yaml:"vol"`
}

// Document is the published assumptions format. Inflation and fee are
// optional and expressed as fractions.
type Document struct {
	RiskProfiles map[string]ProfileEntry `json:"riskProfiles"        yaml:"riskProfiles"`
	Inflation    *float64                `json:"inflation,omitempty" yaml:"inflation,omitempty"`
	Fee          *float64                `json:"fee,omitempty"       yaml:"fee,omitempty"`
}

// FormatForPath picks a decoder from a file extension.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatAuto
}

// ParseDocument decodes and validates a document. FormatAuto treats bodies
// starting with '{' as JSON and everything else as YAML.
func ParseDocument(body []byte, format Format) (*Document, error) {
	if format == FormatAuto {
		format = FormatYAML
		if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
			format = FormatJSON
		}
	}

	var doc Document
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("parsing assumptions json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("parsing assumptions yaml: %w", err)
		}
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate rejects non-finite rates and negative volatility.
func (d *Document) Validate() error {
	if len(d.RiskProfiles) == 0 && d.Inflation == nil && d.Fee == nil {
		return fmt.Errorf("%w: no profiles, inflation or fee", ErrInvalidDocument)
	}
	for name, p := range d.RiskProfiles {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty profile name", ErrInvalidDocument)
		}
		if !finite(p.Mean) || !finite(p.Vol) {
			return fmt.Errorf("%w: profile %q has a non-finite rate", ErrInvalidDocument, name)
		}
		if p.Vol < 0 {
			return fmt.Errorf("%w: profile %q has negative volatility", ErrInvalidDocument, name)
		}
	}
	if d.Inflation != nil && !finite(*d.Inflation) {
		return fmt.Errorf("%w: inflation is not finite", ErrInvalidDocument)
	}
	if d.Fee != nil && (!finite(*d.Fee) || *d.Fee < 0) {
		return fmt.Errorf("%w: fee must be a non-negative number", ErrInvalidDocument)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

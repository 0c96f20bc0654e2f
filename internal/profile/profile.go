// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package profile loads the researcher profile document. The profile is
// read-only to the pipeline; it is owned and edited outside the tool.
package profile

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// Load reads and validates a profile YAML document.
func Load(path string) (types.UserProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.UserProfile{}, fmt.Errorf("reading profile %s: %w", path, err)
	}

	var p types.UserProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return types.UserProfile{}, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	if err := Validate(p); err != nil {
		return types.UserProfile{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// Validate checks the profile carries enough identity and corpus material
// to score against. Collaborators are optional; corpus entries without an
// identifier are rejected since scores must trace back to real papers.
func Validate(p types.UserProfile) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("researcher name is required")
	}
	if len(p.Corpus) == 0 && len(p.Keywords) == 0 {
		return fmt.Errorf("profile needs at least one corpus entry or keyword")
	}
	for i, c := range p.Corpus {
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("corpus entry %d has no identifier", i)
		}
	}
	for i, c := range p.Collaborators {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("collaborator %d has no name", i)
		}
	}
	return nil
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"fmt"

	"github.com/google/uuid"
)

// Artifact represents a generated output from a task, which can contain multiple parts.
type Artifact struct {
	ArtifactID  string         `json:"artifactId"`
	Name        string         `json:"name,omitzero"`
	Description string         `json:"description,omitzero"`
	Parts       Parts          `json:"parts"`
	Metadata    map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the Artifact is valid.
func (a *Artifact) Validate() error {
	if a.ArtifactID == "" {
		return fmt.Errorf("artifact ID cannot be empty")
	}
	if len(a.Parts) == 0 {
		return fmt.Errorf("artifact must contain at least one part")
	}
	return a.Parts.Validate()
}

// NewArtifact creates a new Artifact from parts with a freshly generated ID.
func NewArtifact(parts Parts, name, description string) (*Artifact, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("parts cannot be empty")
	}
	if err := parts.Validate(); err != nil {
		return nil, err
	}

	return &Artifact{
		ArtifactID:  uuid.NewString(),
		Name:        name,
		Description: description,
		Parts:       parts,
	}, nil
}

// NewTextArtifact creates a new Artifact containing a single TextPart.
func NewTextArtifact(name, text, description string) (*Artifact, error) {
	if text == "" {
		return nil, fmt.Errorf("text content cannot be empty")
	}
	return NewArtifact(Parts{NewTextPart(text)}, name, description)
}

// UpsertArtifact replaces the artifact with the same ID in artifacts, or
// appends it when no such artifact exists.
func UpsertArtifact(artifacts []*Artifact, artifact *Artifact) []*Artifact {
	for i, existing := range artifacts {
		if existing != nil && existing.ArtifactID == artifact.ArtifactID {
			artifacts[i] = artifact
			return artifacts
		}
	}
	return append(artifacts, artifact)
}

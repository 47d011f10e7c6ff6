// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Part kinds.
const (
	PartKindText = "text"
	PartKindData = "data"
	PartKindFile = "file"
)

// Part represents one piece of content within a message or artifact.
type Part interface {
	// GetKind returns the part discriminator.
	GetKind() string
	// GetMetadata returns the part metadata, which may be nil.
	GetMetadata() map[string]any
	// Validate ensures the part is well formed.
	Validate() error
}

// TextPart represents a text segment.
type TextPart struct {
	Kind     string         `json:"kind"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

var _ Part = (*TextPart)(nil)

// NewTextPart returns a TextPart holding text.
func NewTextPart(text string) *TextPart {
	return &TextPart{Kind: PartKindText, Text: text}
}

// GetKind implements [Part].
func (p *TextPart) GetKind() string { return PartKindText }

// GetMetadata implements [Part].
func (p *TextPart) GetMetadata() map[string]any { return p.Metadata }

// Validate implements [Part].
func (p *TextPart) Validate() error {
	if p.Kind != PartKindText {
		return fmt.Errorf("text part kind must be %q, got %q", PartKindText, p.Kind)
	}
	return nil
}

// DataPart represents a structured JSON object.
type DataPart struct {
	Kind     string         `json:"kind"`
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

var _ Part = (*DataPart)(nil)

// NewDataPart returns a DataPart holding data and metadata.
func NewDataPart(data, metadata map[string]any) *DataPart {
	return &DataPart{Kind: PartKindData, Data: data, Metadata: metadata}
}

// GetKind implements [Part].
func (p *DataPart) GetKind() string { return PartKindData }

// GetMetadata implements [Part].
func (p *DataPart) GetMetadata() map[string]any { return p.Metadata }

// Validate implements [Part].
func (p *DataPart) Validate() error {
	if p.Kind != PartKindData {
		return fmt.Errorf("data part kind must be %q, got %q", PartKindData, p.Kind)
	}
	if p.Data == nil {
		return fmt.Errorf("data part data cannot be nil")
	}
	return nil
}

// Type returns the kagent payload type recorded in the part metadata.
func (p *DataPart) Type() string {
	s, _ := p.Metadata[MetadataKeyType].(string)
	return s
}

// FileContent holds either inline bytes or a URI reference to a file.
type FileContent struct {
	Name     string `json:"name,omitzero"`
	MIMEType string `json:"mimeType,omitzero"`
	Bytes    string `json:"bytes,omitzero"`
	URI      string `json:"uri,omitzero"`
}

// FilePart represents a file.
type FilePart struct {
	Kind     string         `json:"kind"`
	File     FileContent    `json:"file"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

var _ Part = (*FilePart)(nil)

// GetKind implements [Part].
func (p *FilePart) GetKind() string { return PartKindFile }

// GetMetadata implements [Part].
func (p *FilePart) GetMetadata() map[string]any { return p.Metadata }

// Validate implements [Part].
func (p *FilePart) Validate() error {
	if p.Kind != PartKindFile {
		return fmt.Errorf("file part kind must be %q, got %q", PartKindFile, p.Kind)
	}
	switch {
	case p.File.Bytes == "" && p.File.URI == "":
		return fmt.Errorf("file part must have either bytes or uri")
	case p.File.Bytes != "" && p.File.URI != "":
		return fmt.Errorf("file part cannot have both bytes and uri")
	}
	return nil
}

// Parts is an ordered list of parts that decodes by the "kind" discriminator.
type Parts []Part

// UnmarshalJSON implements custom JSON unmarshaling for the Part union.
func (ps *Parts) UnmarshalJSON(data []byte) error {
	var raws []jsontext.Value
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("failed to unmarshal parts: %w", err)
	}

	parts := make(Parts, 0, len(raws))
	for i, raw := range raws {
		part, err := unmarshalPart(raw)
		if err != nil {
			return fmt.Errorf("part at index %d: %w", i, err)
		}
		parts = append(parts, part)
	}
	*ps = parts

	return nil
}

func unmarshalPart(data []byte) (Part, error) {
	var kind struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &kind); err != nil {
		return nil, fmt.Errorf("failed to unmarshal part kind: %w", err)
	}

	switch kind.Kind {
	case PartKindText:
		var tp TextPart
		if err := json.Unmarshal(data, &tp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal text part: %w", err)
		}
		return &tp, nil
	case PartKindData:
		var dp DataPart
		if err := json.Unmarshal(data, &dp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal data part: %w", err)
		}
		return &dp, nil
	case PartKindFile:
		var fp FilePart
		if err := json.Unmarshal(data, &fp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal file part: %w", err)
		}
		return &fp, nil
	default:
		return nil, fmt.Errorf("unknown part kind: %q", kind.Kind)
	}
}

// Validate validates every part in order.
func (ps Parts) Validate() error {
	for i, part := range ps {
		if part == nil {
			return fmt.Errorf("part at index %d cannot be nil", i)
		}
		if err := part.Validate(); err != nil {
			return fmt.Errorf("part at index %d is invalid: %w", i, err)
		}
	}
	return nil
}

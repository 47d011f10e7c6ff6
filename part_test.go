// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"strings"
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/google/go-cmp/cmp"
)

func TestPartsUnmarshalJSON(t *testing.T) {
	input := `{
		"kind": "message",
		"messageId": "m1",
		"role": "user",
		"parts": [
			{"kind": "text", "text": "hello"},
			{"kind": "data", "data": {"decision_type": "approve"}, "metadata": {"kagent_type": "function_response"}},
			{"kind": "file", "file": {"name": "a.txt", "uri": "https://example.com/a.txt"}}
		]
	}`

	var msg Message
	if err := json.Unmarshal([]byte(input), &msg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	want := Message{
		Kind:      KindMessage,
		MessageID: "m1",
		Role:      RoleUser,
		Parts: Parts{
			&TextPart{Kind: PartKindText, Text: "hello"},
			&DataPart{
				Kind:     PartKindData,
				Data:     map[string]any{"decision_type": "approve"},
				Metadata: map[string]any{MetadataKeyType: DataPartTypeFunctionResponse},
			},
			&FilePart{Kind: PartKindFile, File: FileContent{Name: "a.txt", URI: "https://example.com/a.txt"}},
		},
	}
	if diff := cmp.Diff(want, msg); diff != "" {
		t.Errorf("Unmarshal() mismatch (-want +got):\n%s", diff)
	}
	if err := msg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	data, err := json.Marshal(&msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var again Message
	if err := json.Unmarshal(data, &again); err != nil {
		t.Fatalf("Unmarshal() of marshaled message error = %v", err)
	}
	if diff := cmp.Diff(msg, again); diff != "" {
		t.Errorf("marshal round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPartsUnmarshalJSONUnknownKind(t *testing.T) {
	var parts Parts
	err := json.Unmarshal([]byte(`[{"kind":"video"}]`), &parts)
	if err == nil {
		t.Fatal("expected error for unknown part kind")
	}
	if !strings.Contains(err.Error(), "unknown part kind") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPartValidate(t *testing.T) {
	tests := []struct {
		name    string
		part    Part
		wantErr bool
	}{
		{name: "text", part: NewTextPart("hi")},
		{name: "text wrong kind", part: &TextPart{Kind: "data"}, wantErr: true},
		{name: "data", part: NewDataPart(map[string]any{"a": 1.0}, nil)},
		{name: "data nil", part: &DataPart{Kind: PartKindData}, wantErr: true},
		{name: "file uri", part: &FilePart{Kind: PartKindFile, File: FileContent{URI: "u"}}},
		{name: "file empty", part: &FilePart{Kind: PartKindFile}, wantErr: true},
		{name: "file both", part: &FilePart{Kind: PartKindFile, File: FileContent{URI: "u", Bytes: "Yg=="}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.part.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

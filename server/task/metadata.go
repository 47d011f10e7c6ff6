// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"fmt"
	"maps"

	"github.com/go-json-experiment/json"
	"google.golang.org/protobuf/types/known/structpb"
)

// NormalizeMetadata converts metadata into plain JSON values: numbers become
// float64, nested slices become []any. The result compares equal to what a
// store returns after a round trip.
func NormalizeMetadata(metadata map[string]any) (map[string]any, error) {
	if metadata == nil {
		return nil, nil
	}

	s, err := structpb.NewStruct(metadata)
	if err != nil {
		// Typed Go values such as []string are not understood by structpb;
		// flatten them through JSON first.
		data, merr := json.Marshal(metadata)
		if merr != nil {
			return nil, fmt.Errorf("metadata is not JSON-compatible: %w", merr)
		}
		var generic map[string]any
		if uerr := json.Unmarshal(data, &generic); uerr != nil {
			return nil, fmt.Errorf("metadata is not JSON-compatible: %w", uerr)
		}
		if s, err = structpb.NewStruct(generic); err != nil {
			return nil, fmt.Errorf("metadata is not JSON-compatible: %w", err)
		}
	}
	return s.AsMap(), nil
}

// mergeMetadata returns a copy of dst overlaid with src.
func mergeMetadata(dst, src map[string]any) map[string]any {
	if len(src) == 0 {
		return dst
	}
	out := make(map[string]any, len(dst)+len(src))
	maps.Copy(out, dst)
	maps.Copy(out, src)
	return out
}

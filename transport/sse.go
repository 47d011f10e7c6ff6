// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"bytes"
	"io"
	"iter"

	"github.com/go-json-experiment/json"

	"github.com/go-a2a/kagent-a2a/internal/pool"
)

// maxSSELineBytes bounds a single data line read by a client.
const maxSSELineBytes = 4 << 20

var dataPrefix = []byte("data:")

// writeSSE writes v as a single "data" frame.
func writeSSE(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	buf := pool.Bytes.Get()
	defer pool.Bytes.Put(buf)

	buf.Write(dataPrefix)
	buf.WriteByte(' ')
	buf.Write(data)
	buf.WriteString("\n\n")
	_, err = w.Write(buf.Bytes())
	return err
}

// scanSSE yields the data payload of each frame read from r. Comments and
// other fields are skipped; multi-line data is joined with newlines.
func scanSSE(r io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64<<10), maxSSELineBytes)

		var data []byte
		for sc.Scan() {
			line := sc.Bytes()
			switch {
			case len(line) == 0:
				if len(data) > 0 {
					if !yield(data, nil) {
						return
					}
					data = nil
				}
			case bytes.HasPrefix(line, dataPrefix):
				v := bytes.TrimPrefix(line[len(dataPrefix):], []byte(" "))
				if len(data) > 0 {
					data = append(data, '\n')
				}
				data = append(data, v...)
			}
		}
		if err := sc.Err(); err != nil {
			yield(nil, err)
			return
		}
		if len(data) > 0 {
			yield(data, nil)
		}
	}
}

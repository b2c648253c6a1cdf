/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package value

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
)

// CompressCode32 packs ops into the code32 wire form (spec §6.2) and
// lz4-compresses the result, the way the teacher lz4-compresses columnar
// blobs before writing them to disk. The packed words are little-endian
// ahead of compression so the cache file is portable across architectures.
func CompressCode32(ops []Op) ([]byte, error) {
	words := EncodeFunction(ops)
	raw := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(raw[4*i:], w)
	}

	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress code32: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress code32: %w", err)
	}
	return buf.Bytes(), nil
}

// DecompressCode32 reverses CompressCode32.
func DecompressCode32(data []byte) ([]Op, error) {
	zr := lz4.NewReader(bytes.NewReader(data))
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress code32: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("decompress code32: %d bytes is not a whole number of words", len(raw))
	}
	words := make([]uint32, len(raw)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[4*i:])
	}
	return DecodeFunction(words), nil
}

// SaveFunctionCache writes a function's packed, lz4-compressed bytecode to
// path, for the optional on-disk `code32` cache (spec §4.2.3): a cold-start
// avoids re-running constant folding and register allocation for a function
// whose cache file already matches.
func SaveFunctionCache(path string, ops []Op) error {
	data, err := CompressCode32(ops)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadFunctionCache reads back a cache file written by SaveFunctionCache.
func LoadFunctionCache(path string) ([]Op, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecompressCode32(data)
}

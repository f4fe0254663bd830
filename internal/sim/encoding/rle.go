// Package encoding packs occupancy grids for the wire.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeRLE encodes a sequence of counts into base64(varint pairs).
// The pairs are (count, run_len) repeated.
func EncodeRLE(vals []int) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(vals) {
		v := vals[i]
		run := 1
		for j := i + 1; j < len(vals) && vals[j] == v; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(v))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeRLE reverses EncodeRLE. limit bounds the decoded length.
func DecodeRLE(b64 string, limit int) ([]int, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []int
	for i := 0; i < len(raw); {
		v, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if run == 0 || run > uint64(limit-len(out)) {
			return nil, fmt.Errorf("run of %d overflows %d cells", run, limit)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, int(v))
		}
	}
	return out, nil
}

// EncodeGrid flattens a square grid row by row and run-length encodes it.
func EncodeGrid(grid [][]int) string {
	flat := make([]int, 0, len(grid)*len(grid))
	for _, row := range grid {
		flat = append(flat, row...)
	}
	return EncodeRLE(flat)
}

// DecodeGrid rebuilds a size x size grid from EncodeGrid output.
func DecodeGrid(b64 string, size int) ([][]int, error) {
	if size <= 0 {
		return nil, fmt.Errorf("bad grid size %d", size)
	}
	flat, err := DecodeRLE(b64, size*size)
	if err != nil {
		return nil, err
	}
	if len(flat) != size*size {
		return nil, fmt.Errorf("grid has %d cells, want %d", len(flat), size*size)
	}
	grid := make([][]int, size)
	for r := range grid {
		grid[r] = flat[r*size : (r+1)*size : (r+1)*size]
	}
	return grid, nil
}

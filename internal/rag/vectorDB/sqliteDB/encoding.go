package sqliteDB

import (
	"encoding/binary"
	"math"
)

// vectors are stored as little endian float32 blobs
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte, dim int) []float32 {
	n := len(b) / 4
	if dim > 0 && dim < n {
		n = dim
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out
}

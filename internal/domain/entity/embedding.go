package entity

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DefaultEmbeddingDimension is the vector size produced by the default
// sentence-embedding model.
const DefaultEmbeddingDimension = 1024

// EncodeVector serialises an embedding as raw little-endian 32-bit floats.
// This is the on-disk and on-wire representation used by the SQLite backend.
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector parses raw little-endian 32-bit floats back into a vector.
func DecodeVector(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, &ValidationError{
			Field:   "vector",
			Message: fmt.Sprintf("raw vector length %d is not a multiple of 4", len(raw)),
		}
	}
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return vec, nil
}

// ValidateVectorDimension checks an embedding against the configured dimension.
func ValidateVectorDimension(vec []float32, dim int) error {
	if len(vec) != dim {
		return &ValidationError{
			Field:   "vector",
			Message: fmt.Sprintf("expected dimension %d, got %d", dim, len(vec)),
		}
	}
	return nil
}

package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorCodecRoundTrip(t *testing.T) {
	vec := []float32{0, 1, -1, 0.5, 3.1415927, -2.5e-3}

	decoded, err := DecodeVector(EncodeVector(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)
}

func TestDecodeVectorRejectsTornData(t *testing.T) {
	raw := EncodeVector([]float32{1, 2, 3})
	_, err := DecodeVector(raw[:len(raw)-1])
	assert.Error(t, err)
}

func TestValidateVectorDimension(t *testing.T) {
	vec := make([]float32, DefaultEmbeddingDimension)
	assert.NoError(t, ValidateVectorDimension(vec, DefaultEmbeddingDimension))
	assert.Error(t, ValidateVectorDimension(vec[:10], DefaultEmbeddingDimension))
	assert.Error(t, ValidateVectorDimension(nil, DefaultEmbeddingDimension))
}

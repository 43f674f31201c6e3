package signing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFlat(t *testing.T) {
	out, err := Encode(Params{"b": "2", "a": "1"})
	require.NoError(t, err)
	assert.Equal(t, "a=1&b=2", out)
}

func TestEncodeNested(t *testing.T) {
	out, err := Encode(Params{
		"destination": Params{"key": "pix@example.com"},
		"amount":      150,
	})
	require.NoError(t, err)
	assert.Equal(t, "amount=150&destination%5Bkey%5D=pix%40example.com", out)
}

func TestEncodeSkipsNilValues(t *testing.T) {
	out, err := Encode(Params{"a": Params{"b": 1, "c": nil}})
	require.NoError(t, err)
	assert.Equal(t, "a%5Bb%5D=1", out)
}

func TestEncodeDeepNesting(t *testing.T) {
	out, err := Encode(Params{"a": Params{"b": Params{"c": "x"}}})
	require.NoError(t, err)
	assert.Equal(t, "a%5Bb%5D%5Bc%5D=x", out)
}

func TestEncodeRejectsArrays(t *testing.T) {
	_, err := Encode(Params{"keys": []string{"a", "b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array")
}

func TestEncodePlainMapValue(t *testing.T) {
	out, err := Encode(Params{"destination": map[string]any{"key": "abc"}})
	require.NoError(t, err)
	assert.Equal(t, "destination%5Bkey%5D=abc", out)
}

func TestEncodeBoolAndFloat(t *testing.T) {
	out, err := Encode(Params{"active": true, "amount": 10.5})
	require.NoError(t, err)
	assert.Equal(t, "active=true&amount=10.5", out)
}

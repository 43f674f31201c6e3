package signing

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignDeterministic(t *testing.T) {
	s := NewSigner("secret")
	params := Params{"timestamp": int64(1700000000), "document": "12345678909"}

	first, err := s.Sign(params, nil)
	require.NoError(t, err)
	second, err := s.Sign(params, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSignStripsExistingSignature(t *testing.T) {
	s := NewSigner("secret")
	clean := Params{"timestamp": int64(1700000000)}
	dirty := Params{"timestamp": int64(1700000000), "signature": "garbage"}

	want, err := s.Sign(clean, nil)
	require.NoError(t, err)
	got, err := s.Sign(dirty, nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSignQueryOverridesBody(t *testing.T) {
	s := NewSigner("secret")

	merged, err := s.Sign(Params{"document": "body-value"}, Params{"document": "query-value"})
	require.NoError(t, err)
	queryOnly, err := s.Sign(nil, Params{"document": "query-value"})
	require.NoError(t, err)
	assert.Equal(t, queryOnly, merged)
}

func TestSignMatchesKnownDigest(t *testing.T) {
	s := NewSigner("secret")
	got, err := s.Sign(Params{"timestamp": int64(1700000000)}, nil)
	require.NoError(t, err)

	mac := hmac.New(sha512.New, []byte("secret"))
	mac.Write([]byte("timestamp=1700000000"))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), got)
}

func TestSignRejectsArrayValue(t *testing.T) {
	s := NewSigner("secret")
	_, err := s.Sign(Params{"tags": []int{1, 2}}, nil)
	require.Error(t, err)
}

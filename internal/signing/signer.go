package signing

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
)

// Signer produces HMAC-SHA512 signatures over canonically serialized request
// parameters. One instance is shared by every upstream call site.
type Signer struct {
	secret []byte
}

// NewSigner creates a signer for the given API secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign merges body and query parameters (query keys win on collision, which
// mirrors how getAccountData composes them), strips any pre-existing
// signature field, and returns the lowercase hex HMAC-SHA512 digest of the
// canonical serialization. Signing the same logical parameters is always
// deterministic, including re-signing a tree that already carries a
// signature.
func (s *Signer) Sign(body, query Params) (string, error) {
	combined := make(Params, len(body)+len(query))
	for k, v := range body {
		combined[k] = v
	}
	for k, v := range query {
		combined[k] = v
	}
	delete(combined, "signature")

	serialized, err := Encode(combined)
	if err != nil {
		return "", fmt.Errorf("serialize parameters for signing: %w", err)
	}

	mac := hmac.New(sha512.New, s.secret)
	mac.Write([]byte(serialized))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

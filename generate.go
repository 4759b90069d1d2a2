package rsakey

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"io"
)

// GenerateFunc is an RSA key generation primitive. rsa.GenerateKey
// satisfies it; tests inject deterministic stubs.
type GenerateFunc func(random io.Reader, bits int) (*rsa.PrivateKey, error)

// GenerateKey generates a new RSA key of the given size with rsa.GenerateKey.
// A nil random uses crypto/rand.Reader.
func GenerateKey(random io.Reader, bits int) (*PrivateKey, error) {
	return GenerateKeyWith(rsa.GenerateKey, random, bits)
}

// GenerateKeyWith generates a key with gen and copies every field of its
// output. Primality testing and candidate search belong to gen.
func GenerateKeyWith(gen GenerateFunc, random io.Reader, bits int) (*PrivateKey, error) {
	if random == nil {
		random = rand.Reader
	}
	raw, err := gen(random, bits)
	if err != nil {
		return nil, fmt.Errorf("generating RSA key: %w", err)
	}
	return FromCryptoKey(raw)
}

package rsakey

import (
	"fmt"
	"math/big"

	"golang.org/x/crypto/ssh"
)

// KeyAlgoRSA is the SSH algorithm name for RSA keys and signatures.
const KeyAlgoRSA = ssh.KeyAlgoRSA

// wireHeader is the leading algorithm string shared by every blob.
type wireHeader struct {
	Name string
	Rest []byte `ssh:"rest"`
}

// wireRSAPublic is the body of an ssh-rsa public key blob after its name.
// Both integers are mpint bodies, which frame exactly like SSH strings.
type wireRSAPublic struct {
	E    []byte
	N    []byte
	Rest []byte `ssh:"rest"`
}

// wireSignature is an SSH signature blob.
type wireSignature struct {
	Format string
	Blob   []byte
	Rest   []byte `ssh:"rest"`
}

// marshalPublicBlob builds string("ssh-rsa") || mpint(e) || mpint(n).
func marshalPublicBlob(e, n *big.Int) []byte {
	return ssh.Marshal(struct {
		Name string
		E    []byte
		N    []byte
	}{KeyAlgoRSA, EncodeMPInt(e), EncodeMPInt(n)})
}

// unmarshalPublicBlob is the inverse of marshalPublicBlob. A blob naming
// another algorithm yields ErrUnsupportedKeyType.
func unmarshalPublicBlob(blob []byte) (e, n *big.Int, err error) {
	var hdr wireHeader
	if err := ssh.Unmarshal(blob, &hdr); err != nil {
		return nil, nil, fmt.Errorf("%w: reading key name: %v", ErrMalformedBlob, err)
	}
	if hdr.Name != KeyAlgoRSA {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedKeyType, hdr.Name)
	}
	var body wireRSAPublic
	if err := ssh.Unmarshal(hdr.Rest, &body); err != nil {
		return nil, nil, fmt.Errorf("%w: reading rsa parameters: %v", ErrMalformedBlob, err)
	}
	if len(body.Rest) != 0 {
		return nil, nil, fmt.Errorf("%w: %d trailing bytes after modulus", ErrMalformedBlob, len(body.Rest))
	}
	e = DecodeMPInt(body.E, true)
	n = DecodeMPInt(body.N, true)
	if e.Sign() <= 0 || n.Sign() <= 0 {
		return nil, nil, fmt.Errorf("%w: rsa parameters must be positive", ErrMalformedBlob)
	}
	return e, n, nil
}

// EncodeSignature frames a raw RSA signature integer as an SSH signature
// blob: string("ssh-rsa") || string(mpint body of raw).
func EncodeSignature(raw *big.Int) []byte {
	return ssh.Marshal(struct {
		Format string
		Blob   []byte
	}{KeyAlgoRSA, EncodeMPInt(raw)})
}

// DecodeSignature splits a signature blob into its algorithm name and the
// raw signature integer, read as an unsigned magnitude. Trailing bytes are
// rejected.
func DecodeSignature(b []byte) (string, *big.Int, error) {
	var sig wireSignature
	if err := ssh.Unmarshal(b, &sig); err != nil {
		return "", nil, fmt.Errorf("%w: reading signature: %v", ErrMalformedBlob, err)
	}
	if len(sig.Rest) != 0 {
		return "", nil, fmt.Errorf("%w: %d trailing bytes after signature", ErrMalformedBlob, len(sig.Rest))
	}
	return sig.Format, DecodeMPInt(sig.Blob, false), nil
}

package rsakey

import (
	"crypto/des"
	"crypto/rand"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"
	"strings"
)

// PEMBlockType is the PEM type of a PKCS#1 RSA private key file.
const PEMBlockType = "RSA PRIVATE KEY"

const (
	procTypeEncrypted = "4,ENCRYPTED"
	headerProcType    = "Proc-Type"
	headerDEKInfo     = "DEK-Info"
)

// Envelope is a private key file split into its cipher, salt and BER
// payload. Cipher and Salt are empty for an unencrypted file; Payload is
// ciphertext when they are set.
type Envelope struct {
	Cipher  string
	Salt    []byte
	Payload []byte
}

// Encrypted reports whether the payload is ciphertext.
func (env *Envelope) Encrypted() bool {
	return env.Cipher != ""
}

// ParseEnvelope decodes the first PEM block of data and reads its legacy
// encryption headers. Blocks other than RSA PRIVATE KEY return
// ErrUnsupportedKeyType.
func ParseEnvelope(data []byte) (*Envelope, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrMalformedContainer)
	}
	if block.Type != PEMBlockType {
		return nil, fmt.Errorf("%w: PEM block %q", ErrUnsupportedKeyType, block.Type)
	}

	procType, ok := block.Headers[headerProcType]
	if !ok {
		return &Envelope{Payload: block.Bytes}, nil
	}
	if procType != procTypeEncrypted {
		return nil, fmt.Errorf("%w: unexpected Proc-Type %q", ErrMalformedContainer, procType)
	}

	mode, saltHex, ok := strings.Cut(block.Headers[headerDEKInfo], ",")
	if !ok {
		return nil, fmt.Errorf("%w: DEK-Info header missing or malformed", ErrMalformedContainer)
	}
	if mode != CipherDES3 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCipher, mode)
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, fmt.Errorf("%w: DEK-Info salt: %v", ErrMalformedContainer, err)
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("%w: DEK-Info salt is %d bytes, want %d", ErrMalformedContainer, len(salt), SaltSize)
	}
	return &Envelope{Cipher: mode, Salt: salt, Payload: block.Bytes}, nil
}

// ParsePrivateKeyPEM loads an RSA private key file, decrypting it with
// passphrase when the file is encrypted. The passphrase is ignored for
// unencrypted files.
//
// Structural problems in an unencrypted file return ErrMalformedContainer.
// When an encrypted file decrypts to bytes that do not parse, the error
// wraps ErrDecryptionFailure: the passphrase is probably wrong.
func ParsePrivateKeyPEM(data, passphrase []byte) (*PrivateKey, error) {
	env, err := ParseEnvelope(data)
	if err != nil {
		return nil, err
	}
	if !env.Encrypted() {
		return parsePrivateKeyPayload(env.Payload, 0)
	}

	if len(passphrase) == 0 {
		return nil, ErrPassphraseRequired
	}
	plaintext, err := DecryptPayload(env.Payload, passphrase, env.Salt)
	if err != nil {
		return nil, err
	}
	// The plaintext still carries up to one block of cipher padding.
	key, err := parsePrivateKeyPayload(plaintext, des.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailure, err)
	}
	return key, nil
}

// parsePrivateKeyPayload decodes a BER private key tuple followed by at most
// maxTrailing bytes.
func parsePrivateKeyPayload(payload []byte, maxTrailing int) (*PrivateKey, error) {
	v, rest, err := decodeBERPrefix(payload)
	if err != nil {
		return nil, err
	}
	if len(rest) > maxTrailing {
		return nil, fmt.Errorf("%w: %d trailing bytes after key", ErrMalformedContainer, len(rest))
	}
	return parsePrivateKeyTuple(v)
}

// parsePrivateKeyTuple reads
// SEQUENCE { version(0), n, e, d, p, q, d mod (p-1), d mod (q-1), q^-1 mod p }.
// Only the first four elements are required.
func parsePrivateKeyTuple(v BERValue) (*PrivateKey, error) {
	seq, ok := v.(BERSequence)
	if !ok {
		return nil, fmt.Errorf("%w: top-level element is not a SEQUENCE", ErrMalformedContainer)
	}
	ints := make([]*big.Int, len(seq))
	for i, elem := range seq {
		n, ok := elem.(BERInteger)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is not an INTEGER", ErrMalformedContainer, i)
		}
		ints[i] = n.Value
	}
	if len(ints) < 4 {
		return nil, fmt.Errorf("%w: %d integers, need at least 4", ErrMalformedContainer, len(ints))
	}
	if ints[0].Sign() != 0 {
		return nil, fmt.Errorf("%w: version %s, want 0", ErrMalformedContainer, ints[0])
	}

	var p, q *big.Int
	if len(ints) >= 6 {
		p, q = ints[4], ints[5]
	}
	key, err := NewPrivateKey(ints[1], ints[2], ints[3], p, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedContainer, err)
	}
	return key, nil
}

// PEMOptions controls how MarshalPEM writes a key file.
type PEMOptions struct {
	// Passphrase encrypts the file with DES-EDE3-CBC when non-empty.
	Passphrase []byte
	// Rand supplies the salt. Defaults to crypto/rand.Reader.
	Rand io.Reader
}

// MarshalPEM encodes the key as a PKCS#1 RSA PRIVATE KEY file, including the
// CRT parameters, and encrypts it when opts carries a passphrase. The key
// must hold its prime factors.
func (k *PrivateKey) MarshalPEM(opts PEMOptions) ([]byte, error) {
	der, err := k.marshalBER()
	if err != nil {
		return nil, err
	}
	block := &pem.Block{Type: PEMBlockType, Bytes: der}

	if len(opts.Passphrase) > 0 {
		random := opts.Rand
		if random == nil {
			random = rand.Reader
		}
		salt := make([]byte, SaltSize)
		if _, err := io.ReadFull(random, salt); err != nil {
			return nil, fmt.Errorf("reading salt: %w", err)
		}
		ciphertext, err := EncryptPayload(der, opts.Passphrase, salt)
		if err != nil {
			return nil, err
		}
		block.Headers = map[string]string{
			headerProcType: procTypeEncrypted,
			headerDEKInfo:  CipherDES3 + "," + strings.ToUpper(hex.EncodeToString(salt)),
		}
		block.Bytes = ciphertext
	}
	return pem.EncodeToMemory(block), nil
}

func (k *PrivateKey) marshalBER() ([]byte, error) {
	if k.p == nil || k.q == nil {
		return nil, fmt.Errorf("%w: prime factors are required to write a key file", ErrInvalidKeyState)
	}
	pm1 := new(big.Int).Sub(k.p, bigOne)
	qm1 := new(big.Int).Sub(k.q, bigOne)
	if pm1.Sign() <= 0 || qm1.Sign() <= 0 {
		return nil, fmt.Errorf("%w: prime factors must exceed 1", ErrInvalidKeyState)
	}
	qInv := new(big.Int).ModInverse(k.q, k.p)
	if qInv == nil {
		return nil, fmt.Errorf("%w: q has no inverse modulo p", ErrInvalidKeyState)
	}
	return EncodeBERIntegers(
		big.NewInt(0),
		k.n, k.e, k.d, k.p, k.q,
		new(big.Int).Mod(k.d, pm1),
		new(big.Int).Mod(k.d, qm1),
		qInv,
	), nil
}

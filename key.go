// Package rsakey encodes and decodes RSA key material for SSH2: mpint
// integers, the BER private key container and its legacy passphrase
// envelope, PKCS#1 v1.5 SHA-1 signature padding, and the ssh-rsa public key
// and signature blobs.
package rsakey

import (
	"crypto/md5"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/ssh"
)

// Key is the capability shared by public-only and private RSA keys.
type Key interface {
	Name() string
	Marshal() []byte
	Verify(data, sig []byte) bool
}

// Signer is a Key that also holds the private exponent.
type Signer interface {
	Key
	Sign(data []byte) ([]byte, error)
}

// PublicKey is an RSA public key. The zero value is an empty, invalid key:
// it marshals to nil and verifies nothing.
type PublicKey struct {
	n    *big.Int
	e    *big.Int
	size int
}

// PrivateKey is an RSA key holding the private exponent d and, when known,
// the prime factors p and q.
type PrivateKey struct {
	PublicKey
	d *big.Int
	p *big.Int
	q *big.Int
}

var (
	_ Key    = (*PublicKey)(nil)
	_ Signer = (*PrivateKey)(nil)
)

// NewPublicKey returns a public key for modulus n and exponent e.
func NewPublicKey(n, e *big.Int) (*PublicKey, error) {
	if n == nil || e == nil || n.Sign() <= 0 || e.Sign() <= 0 {
		return nil, fmt.Errorf("%w: modulus and exponent must be positive", ErrInvalidKeyState)
	}
	return &PublicKey{
		n:    new(big.Int).Set(n),
		e:    new(big.Int).Set(e),
		size: magnitudeLen(n),
	}, nil
}

// NewPrivateKey returns a private key. p and q may be nil, in which case the
// key can sign but cannot be written to a key file.
func NewPrivateKey(n, e, d, p, q *big.Int) (*PrivateKey, error) {
	pub, err := NewPublicKey(n, e)
	if err != nil {
		return nil, err
	}
	if d == nil || d.Sign() <= 0 {
		return nil, fmt.Errorf("%w: private exponent must be positive", ErrInvalidKeyState)
	}
	k := &PrivateKey{PublicKey: *pub, d: new(big.Int).Set(d)}
	if p != nil && q != nil {
		k.p = new(big.Int).Set(p)
		k.q = new(big.Int).Set(q)
	}
	return k, nil
}

// ParsePublicKey parses an ssh-rsa public key blob:
// string("ssh-rsa") || mpint(e) || mpint(n). A blob for another algorithm
// returns ErrUnsupportedKeyType.
func ParsePublicKey(blob []byte) (*PublicKey, error) {
	e, n, err := unmarshalPublicBlob(blob)
	if err != nil {
		return nil, err
	}
	return &PublicKey{n: n, e: e, size: magnitudeLen(n)}, nil
}

// ParseAuthorizedKey parses an authorized_keys line holding an ssh-rsa key
// and returns the key and its comment.
func ParseAuthorizedKey(line []byte) (*PublicKey, string, error) {
	sshKey, comment, _, _, err := ssh.ParseAuthorizedKey(line)
	if err != nil {
		return nil, "", fmt.Errorf("parsing authorized key: %w", err)
	}
	pub, err := ParsePublicKey(sshKey.Marshal())
	if err != nil {
		return nil, "", err
	}
	return pub, comment, nil
}

// Valid reports whether the key holds a modulus and exponent.
func (k *PublicKey) Valid() bool {
	return k != nil && k.n != nil && k.e != nil
}

// Name returns the SSH algorithm name, "ssh-rsa".
func (k *PublicKey) Name() string {
	return KeyAlgoRSA
}

// N returns a copy of the modulus, or nil for an invalid key.
func (k *PublicKey) N() *big.Int {
	if !k.Valid() {
		return nil
	}
	return copyInt(k.n)
}

// E returns a copy of the public exponent, or nil for an invalid key.
func (k *PublicKey) E() *big.Int {
	if !k.Valid() {
		return nil
	}
	return copyInt(k.e)
}

// copyInt returns a copy of x, or nil when x is nil.
func copyInt(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}

// Size returns the byte length of the modulus.
func (k *PublicKey) Size() int { return k.size }

// BitLen returns the bit length of the modulus.
func (k *PublicKey) BitLen() int {
	if !k.Valid() {
		return 0
	}
	return k.n.BitLen()
}

// Marshal returns the ssh-rsa public key blob, or nil for an invalid key.
func (k *PublicKey) Marshal() []byte {
	if !k.Valid() {
		return nil
	}
	return marshalPublicBlob(k.e, k.n)
}

// Equal reports whether both keys have the same modulus and exponent.
func (k *PublicKey) Equal(other *PublicKey) bool {
	if !k.Valid() || !other.Valid() {
		return false
	}
	return k.n.Cmp(other.n) == 0 && k.e.Cmp(other.e) == 0
}

// Fingerprint returns the legacy MD5 fingerprint of the public key blob as
// colon-separated lowercase hex, as printed by older ssh-keygen releases.
func (k *PublicKey) Fingerprint() string {
	if !k.Valid() {
		return ""
	}
	sum := md5.Sum(k.Marshal())
	return ColonHex(sum[:])
}

// FingerprintSHA256 returns the "SHA256:..." fingerprint of the key.
func (k *PublicKey) FingerprintSHA256() string {
	sshKey, err := k.sshPublicKey()
	if err != nil {
		return ""
	}
	return ssh.FingerprintSHA256(sshKey)
}

// AuthorizedKey returns an authorized_keys line for the key, with an
// optional trailing comment and a final newline.
func (k *PublicKey) AuthorizedKey(comment string) ([]byte, error) {
	sshKey, err := k.sshPublicKey()
	if err != nil {
		return nil, err
	}
	line := ssh.MarshalAuthorizedKey(sshKey)
	if comment == "" {
		return line, nil
	}
	line = line[:len(line)-1]
	return append(append(append(line, ' '), comment...), '\n'), nil
}

func (k *PublicKey) sshPublicKey() (ssh.PublicKey, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: empty public key", ErrInvalidKeyState)
	}
	return ssh.ParsePublicKey(k.Marshal())
}

// CryptoPublicKey converts the key to a crypto/rsa public key. It fails for
// exponents that do not fit in an int.
func (k *PublicKey) CryptoPublicKey() (*rsa.PublicKey, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: empty public key", ErrInvalidKeyState)
	}
	if !k.e.IsInt64() || k.e.Int64() > int64(^uint32(0)>>1) {
		return nil, fmt.Errorf("%w: public exponent %s too large", ErrUnsupportedKeyType, k.e)
	}
	return &rsa.PublicKey{N: k.N(), E: int(k.e.Int64())}, nil
}

// Verify reports whether sig is a valid ssh-rsa signature blob over data.
//
// The signature value is raised to e and rendered at the full modulus width,
// then compared byte-for-byte with a freshly padded SHA-1 block. The
// decrypted value is never parsed, so short or oddly placed padding cannot
// pass.
func (k *PublicKey) Verify(data, sig []byte) bool {
	if !k.Valid() {
		return false
	}
	format, s, err := DecodeSignature(sig)
	if err != nil || format != KeyAlgoRSA {
		return false
	}
	if s.Cmp(k.n) >= 0 {
		return false
	}
	digest := sha1.Sum(data)
	expected, err := PadPKCS1SHA1(digest[:], k.size)
	if err != nil {
		return false
	}
	m := new(big.Int).Exp(s, k.e, k.n)
	got := m.FillBytes(make([]byte, k.size))
	return subtle.ConstantTimeCompare(got, expected) == 1
}

// Public returns the public half of the key.
func (k *PrivateKey) Public() *PublicKey {
	pub := k.PublicKey
	return &pub
}

// D returns a copy of the private exponent, or nil for a zero PrivateKey.
func (k *PrivateKey) D() *big.Int {
	if k == nil {
		return nil
	}
	return copyInt(k.d)
}

// Primes returns copies of p and q, or nils when the key does not hold them.
func (k *PrivateKey) Primes() (p, q *big.Int) {
	if k == nil || k.p == nil || k.q == nil {
		return nil, nil
	}
	return copyInt(k.p), copyInt(k.q)
}

// Sign returns an ssh-rsa signature blob over the SHA-1 digest of data.
func (k *PrivateKey) Sign(data []byte) ([]byte, error) {
	digest := sha1.Sum(data)
	block, err := PadPKCS1SHA1(digest[:], k.size)
	if err != nil {
		return nil, err
	}
	m := new(big.Int).SetBytes(block)
	s := new(big.Int).Exp(m, k.d, k.n)
	return EncodeSignature(s), nil
}

// CryptoKey converts the key to a crypto/rsa private key. The key must hold
// its prime factors.
func (k *PrivateKey) CryptoKey() (*rsa.PrivateKey, error) {
	pub, err := k.PublicKey.CryptoPublicKey()
	if err != nil {
		return nil, err
	}
	if k.p == nil || k.q == nil {
		return nil, fmt.Errorf("%w: prime factors unknown", ErrInvalidKeyState)
	}
	priv := &rsa.PrivateKey{
		PublicKey: *pub,
		D:         k.D(),
		Primes:    []*big.Int{new(big.Int).Set(k.p), new(big.Int).Set(k.q)},
	}
	if err := priv.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyState, err)
	}
	priv.Precompute()
	return priv, nil
}

// FromCryptoKey converts a two-prime crypto/rsa private key.
func FromCryptoKey(key *rsa.PrivateKey) (*PrivateKey, error) {
	if key == nil || len(key.Primes) != 2 {
		return nil, fmt.Errorf("%w: need a two-prime rsa key", ErrInvalidKeyState)
	}
	return NewPrivateKey(key.N, big.NewInt(int64(key.E)), key.D, key.Primes[0], key.Primes[1])
}

// ColonHex formats a byte slice as colon-separated lowercase hex.
func ColonHex(b []byte) string {
	h := hex.EncodeToString(b)
	parts := make([]string, 0, len(h)/2)
	for i := 0; i < len(h); i += 2 {
		parts = append(parts, h[i:i+2])
	}
	return strings.Join(parts, ":")
}

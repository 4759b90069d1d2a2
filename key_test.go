package rsakey

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"errors"
	"math/big"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
)

// signRawBlock signs an arbitrary block with the private exponent, bypassing
// padding, so tests can build forgeries that a lax verifier would accept.
func signRawBlock(k *PrivateKey, block []byte) []byte {
	m := new(big.Int).SetBytes(block)
	return EncodeSignature(new(big.Int).Exp(m, k.d, k.n))
}

func TestSignVerify_RoundTrip(t *testing.T) {
	// WHY: a signature over the SSH session payload must verify with the
	// same key's public half and fail for any other message.
	t.Parallel()
	key := testPrivateKey(t)
	data := []byte("ssh-connection")

	sig, err := key.Sign(data)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !key.Verify(data, sig) {
		t.Fatal("private key rejected its own signature")
	}
	if !key.Public().Verify(data, sig) {
		t.Fatal("public half rejected the signature")
	}
	if key.Verify([]byte("ssh-connectioN"), sig) {
		t.Error("signature verified over a different message")
	}

	format, _, err := DecodeSignature(sig)
	if err != nil || format != KeyAlgoRSA {
		t.Errorf("signature format = %q, %v", format, err)
	}
}

func TestVerify_RejectsEveryBitFlip(t *testing.T) {
	// WHY: the verifier must be all-or-nothing over the whole blob; a single
	// flipped bit in the framing, tag, or signature value must never pass.
	t.Parallel()
	key := testPrivateKey(t)
	data := []byte("ssh-connection")
	sig, err := key.Sign(data)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	for i := range sig {
		for bit := range 8 {
			mutated := bytes.Clone(sig)
			mutated[i] ^= 1 << bit
			if key.Verify(data, mutated) {
				t.Fatalf("verify accepted signature with byte %d bit %d flipped", i, bit)
			}
		}
	}
}

func TestVerify_Rejections(t *testing.T) {
	// WHY: each case is a way an attacker or a buggy peer can present a
	// signature that decrypts to something close to a valid block; only the
	// exact full-width block may pass.
	t.Parallel()
	key := testPrivateKey(t)
	data := []byte("ssh-connection")
	digest := sha1.Sum(data)
	good, err := PadPKCS1SHA1(digest[:], key.Size())
	if err != nil {
		t.Fatalf("PadPKCS1SHA1: %v", err)
	}
	sig, err := key.Sign(data)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	_, s, err := DecodeSignature(sig)
	if err != nil {
		t.Fatalf("DecodeSignature: %v", err)
	}

	// Digest info moved to the front, with garbage after the digest.
	garbageTail := append([]byte{0x00, 0x01, 0xff, 0x00}, sha1DigestInfo...)
	garbageTail = append(garbageTail, digest[:]...)
	for len(garbageTail) < key.Size() {
		garbageTail = append(garbageTail, 0x42)
	}

	// No filler at all; the block is left-padded with zeros instead.
	noFiller := append([]byte{0x00, 0x01, 0x00}, sha1DigestInfo...)
	noFiller = append(noFiller, digest[:]...)
	noFiller = append(make([]byte, key.Size()-len(noFiller)), noFiller...)

	// Correct layout but block type 02.
	wrongType := bytes.Clone(good)
	wrongType[1] = 0x02

	tests := []struct {
		name string
		sig  []byte
	}{
		{name: "wrong_tag", sig: ssh.Marshal(struct {
			Format string
			Blob   []byte
		}{"ssh-dss", EncodeMPInt(s)})},
		{name: "sig_plus_modulus", sig: EncodeSignature(new(big.Int).Add(s, key.n))},
		{name: "garbage_after_digest", sig: signRawBlock(key, garbageTail)},
		{name: "no_filler", sig: signRawBlock(key, noFiller)},
		{name: "wrong_block_type", sig: signRawBlock(key, wrongType)},
		{name: "empty", sig: nil},
		{name: "truncated", sig: sig[:len(sig)-1]},
		{name: "trailing_bytes", sig: append(bytes.Clone(sig), 0x00)},
		{name: "zero_signature", sig: EncodeSignature(big.NewInt(0))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if key.Verify(data, tt.sig) {
				t.Error("forged or malformed signature verified")
			}
		})
	}

	if !key.Verify(data, signRawBlock(key, good)) {
		t.Error("raw-signed correct block did not verify")
	}
}

func TestSign_KeyTooSmall(t *testing.T) {
	// WHY: a 38-byte modulus cannot hold the padded SHA-1 DigestInfo, so
	// signing must fail with a typed error instead of producing garbage.
	t.Parallel()
	n := new(big.Int).Lsh(big.NewInt(1), 38*8-1)
	n.Add(n, bigOne)
	key, err := NewPrivateKey(n, big.NewInt(3), big.NewInt(3), nil, nil)
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	if key.Size() != 38 {
		t.Fatalf("size = %d, want 38", key.Size())
	}
	if _, err := key.Sign([]byte("x")); !errors.Is(err, ErrKeyTooSmall) {
		t.Errorf("expected ErrKeyTooSmall, got %v", err)
	}
	if key.Verify([]byte("x"), EncodeSignature(big.NewInt(2))) {
		t.Error("undersized key verified a signature")
	}
}

func TestPublicKey_ZeroValue(t *testing.T) {
	// WHY: an empty key must be inert: no blob, no fingerprint, and never a
	// successful verification.
	t.Parallel()
	var k PublicKey
	if k.Valid() {
		t.Error("zero PublicKey reports valid")
	}
	if k.Marshal() != nil {
		t.Error("zero PublicKey marshaled to a non-nil blob")
	}
	if k.Verify([]byte("x"), EncodeSignature(big.NewInt(1))) {
		t.Error("zero PublicKey verified a signature")
	}
	if k.Fingerprint() != "" || k.FingerprintSHA256() != "" {
		t.Error("zero PublicKey has a fingerprint")
	}
	if _, err := k.AuthorizedKey(""); !errors.Is(err, ErrInvalidKeyState) {
		t.Errorf("AuthorizedKey: expected ErrInvalidKeyState, got %v", err)
	}
	if k.Name() != "ssh-rsa" {
		t.Errorf("Name = %q", k.Name())
	}
	if k.N() != nil || k.E() != nil {
		t.Error("zero PublicKey returned parameters")
	}
	var priv PrivateKey
	if priv.D() != nil {
		t.Error("zero PrivateKey returned a private exponent")
	}
	if p, q := priv.Primes(); p != nil || q != nil {
		t.Error("zero PrivateKey returned primes")
	}
}

func TestDecodeSignature_RejectsTrailingBytes(t *testing.T) {
	// WHY: a signature blob is exactly two fields; accepting appended bytes
	// would let distinct byte strings verify as the same signature.
	t.Parallel()
	blob := EncodeSignature(big.NewInt(0x1234))
	if _, _, err := DecodeSignature(blob); err != nil {
		t.Fatalf("DecodeSignature: %v", err)
	}
	if _, _, err := DecodeSignature(append(bytes.Clone(blob), 0xff)); !errors.Is(err, ErrMalformedBlob) {
		t.Errorf("expected ErrMalformedBlob, got %v", err)
	}
}

func TestPublicKey_MarshalParseRoundTrip(t *testing.T) {
	// WHY: parse(marshal(k)) must preserve e and n, and the blob must be
	// byte-identical to what x/crypto/ssh writes for the same key.
	t.Parallel()
	raw := testCryptoKey(t)
	key := testPrivateKey(t)

	blob := key.Marshal()
	parsed, err := ParsePublicKey(blob)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	if !parsed.Equal(key.Public()) {
		t.Error("parsed key differs from original")
	}
	if parsed.Size() != key.Size() || parsed.Size() != raw.Size() {
		t.Errorf("size = %d, want %d", parsed.Size(), raw.Size())
	}

	sshKey, err := ssh.NewPublicKey(&raw.PublicKey)
	if err != nil {
		t.Fatalf("ssh.NewPublicKey: %v", err)
	}
	if !bytes.Equal(blob, sshKey.Marshal()) {
		t.Error("blob differs from x/crypto/ssh encoding")
	}
	if _, err := ssh.ParsePublicKey(blob); err != nil {
		t.Errorf("x/crypto/ssh rejected blob: %v", err)
	}
}

func TestParsePublicKey_Errors(t *testing.T) {
	// WHY: callers probe blobs against several key types, so a foreign tag
	// must be distinguishable from a corrupt blob.
	t.Parallel()
	blob := testPrivateKey(t).Marshal()
	dss := ssh.Marshal(struct {
		Name string
		P    []byte
	}{"ssh-dss", []byte{1}})

	tests := []struct {
		name string
		blob []byte
		want error
	}{
		{name: "foreign_tag", blob: dss, want: ErrUnsupportedKeyType},
		{name: "empty", blob: nil, want: ErrMalformedBlob},
		{name: "header_truncated", blob: blob[:3], want: ErrMalformedBlob},
		{name: "modulus_truncated", blob: blob[:len(blob)-5], want: ErrMalformedBlob},
		{name: "no_modulus", blob: ssh.Marshal(struct {
			Name string
			E    []byte
		}{"ssh-rsa", []byte{1, 0, 1}}), want: ErrMalformedBlob},
		{name: "negative_modulus", blob: ssh.Marshal(struct {
			Name string
			E, N []byte
		}{"ssh-rsa", []byte{3}, []byte{0x80, 0x01}}), want: ErrMalformedBlob},
		{name: "trailing_bytes", blob: append(bytes.Clone(blob), 0x00, 0x00, 0x00, 0x00), want: ErrMalformedBlob},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			k, err := ParsePublicKey(tt.blob)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if k != nil {
				t.Error("non-nil key returned with error")
			}
		})
	}
}

func TestSignatures_InteropWithCryptoRSA(t *testing.T) {
	// WHY: signatures must be plain PKCS#1 v1.5 SHA-1 so that either side of
	// a connection can use a different RSA implementation.
	t.Parallel()
	raw := testCryptoKey(t)
	key := testPrivateKey(t)
	data := []byte("interop payload")
	digest := sha1.Sum(data)

	theirs, err := rsa.SignPKCS1v15(rand.Reader, raw, crypto.SHA1, digest[:])
	if err != nil {
		t.Fatalf("SignPKCS1v15: %v", err)
	}
	if !key.Verify(data, EncodeSignature(new(big.Int).SetBytes(theirs))) {
		t.Error("crypto/rsa signature did not verify")
	}

	ours, err := key.Sign(data)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	_, s, err := DecodeSignature(ours)
	if err != nil {
		t.Fatalf("DecodeSignature: %v", err)
	}
	if err := rsa.VerifyPKCS1v15(&raw.PublicKey, crypto.SHA1, digest[:], s.FillBytes(make([]byte, raw.Size()))); err != nil {
		t.Errorf("crypto/rsa rejected our signature: %v", err)
	}
}

func TestAuthorizedKey_RoundTrip(t *testing.T) {
	// WHY: public keys are exchanged as authorized_keys lines; the comment
	// must survive and the line must parse back to the same key.
	t.Parallel()
	pub := testPrivateKey(t).Public()
	tests := []struct {
		name    string
		comment string
	}{
		{name: "with_comment", comment: "alice@example"},
		{name: "no_comment", comment: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			line, err := pub.AuthorizedKey(tt.comment)
			if err != nil {
				t.Fatalf("AuthorizedKey: %v", err)
			}
			if !strings.HasPrefix(string(line), "ssh-rsa ") || !strings.HasSuffix(string(line), "\n") {
				t.Errorf("unexpected line %q", line)
			}
			got, comment, err := ParseAuthorizedKey(line)
			if err != nil {
				t.Fatalf("ParseAuthorizedKey: %v", err)
			}
			if !got.Equal(pub) {
				t.Error("parsed key differs")
			}
			if comment != tt.comment {
				t.Errorf("comment = %q, want %q", comment, tt.comment)
			}
		})
	}
}

func TestParseAuthorizedKey_ForeignType(t *testing.T) {
	// WHY: an ed25519 line is a valid authorized_keys entry but not an RSA
	// key, and must be reported as an unsupported type.
	t.Parallel()
	line := []byte("ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIGD6zy2NhJfv7bIjZ7mSPqsyGe1zPu/cqBAMVHzpP3Qq test\n")
	if _, _, err := ParseAuthorizedKey(line); !errors.Is(err, ErrUnsupportedKeyType) {
		t.Errorf("expected ErrUnsupportedKeyType, got %v", err)
	}
}

func TestFingerprints_MatchSSH(t *testing.T) {
	// WHY: fingerprints are shown to users next to ssh-keygen output and
	// must use the same formatting.
	t.Parallel()
	raw := testCryptoKey(t)
	pub := testPrivateKey(t).Public()
	sshKey, err := ssh.NewPublicKey(&raw.PublicKey)
	if err != nil {
		t.Fatalf("ssh.NewPublicKey: %v", err)
	}
	if got, want := pub.Fingerprint(), ssh.FingerprintLegacyMD5(sshKey); got != want {
		t.Errorf("Fingerprint = %q, want %q", got, want)
	}
	if got, want := pub.FingerprintSHA256(), ssh.FingerprintSHA256(sshKey); got != want {
		t.Errorf("FingerprintSHA256 = %q, want %q", got, want)
	}
}

func TestCryptoKey_RoundTrip(t *testing.T) {
	// WHY: conversion to and from crypto/rsa is how generated keys enter the
	// codec; the CRT values must be recomputed and validate.
	t.Parallel()
	raw := testCryptoKey(t)
	key := testPrivateKey(t)
	back, err := key.CryptoKey()
	if err != nil {
		t.Fatalf("CryptoKey: %v", err)
	}
	if back.N.Cmp(raw.N) != 0 || back.E != raw.E || back.D.Cmp(raw.D) != 0 {
		t.Error("converted key differs")
	}
	if back.Precomputed.Dp == nil {
		t.Error("CRT values were not precomputed")
	}

	noPrimes, err := NewPrivateKey(key.N(), key.E(), key.D(), nil, nil)
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	if _, err := noPrimes.CryptoKey(); !errors.Is(err, ErrInvalidKeyState) {
		t.Errorf("expected ErrInvalidKeyState without primes, got %v", err)
	}
}

func TestCryptoPublicKey_ExponentTooLarge(t *testing.T) {
	// WHY: SSH permits arbitrarily large exponents but crypto/rsa stores E
	// as an int; conversion must fail instead of truncating.
	t.Parallel()
	e := new(big.Int).Lsh(big.NewInt(1), 64)
	e.Add(e, bigOne)
	pub, err := NewPublicKey(testCryptoKey(t).N, e)
	if err != nil {
		t.Fatalf("NewPublicKey: %v", err)
	}
	if _, err := pub.CryptoPublicKey(); !errors.Is(err, ErrUnsupportedKeyType) {
		t.Errorf("expected ErrUnsupportedKeyType, got %v", err)
	}
}

func TestNewKey_InvalidState(t *testing.T) {
	// WHY: constructors are the only way to build a key outside parsing;
	// non-positive parameters must not produce a half-usable key.
	t.Parallel()
	one := big.NewInt(1)
	tests := []struct {
		name string
		run  func() error
	}{
		{name: "nil_modulus", run: func() error { _, err := NewPublicKey(nil, one); return err }},
		{name: "zero_exponent", run: func() error { _, err := NewPublicKey(one, big.NewInt(0)); return err }},
		{name: "negative_d", run: func() error { _, err := NewPrivateKey(one, one, big.NewInt(-1), nil, nil); return err }},
		{name: "nil_d", run: func() error { _, err := NewPrivateKey(one, one, nil, nil, nil); return err }},
		{name: "from_nil", run: func() error { _, err := FromCryptoKey(nil); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.run(); !errors.Is(err, ErrInvalidKeyState) {
				t.Errorf("expected ErrInvalidKeyState, got %v", err)
			}
		})
	}
}

func TestColonHex(t *testing.T) {
	// WHY: fingerprints depend on exact separator placement.
	t.Parallel()
	tests := []struct {
		in   []byte
		want string
	}{
		{in: nil, want: ""},
		{in: []byte{0x0a}, want: "0a"},
		{in: []byte{0xde, 0xad, 0xbe, 0xef}, want: "de:ad:be:ef"},
	}
	for _, tt := range tests {
		if got := ColonHex(tt.in); got != tt.want {
			t.Errorf("ColonHex(%x) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

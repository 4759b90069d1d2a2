package rsakey

import (
	"crypto/rand"
	"crypto/rsa"
	"math/big"
	"sync"
	"testing"
)

var (
	testKeyOnce sync.Once
	testRSAKey  *rsa.PrivateKey
	testKeyErr  error
)

// testCryptoKey returns a shared 1024-bit RSA key. Generation is slow, so
// every test in the package reuses the same key.
func testCryptoKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		testRSAKey, testKeyErr = rsa.GenerateKey(rand.Reader, 1024)
	})
	if testKeyErr != nil {
		t.Fatalf("generate RSA test key: %v", testKeyErr)
	}
	return testRSAKey
}

// testPrivateKey returns the shared test key converted to a PrivateKey.
func testPrivateKey(t *testing.T) *PrivateKey {
	t.Helper()
	key, err := FromCryptoKey(testCryptoKey(t))
	if err != nil {
		t.Fatalf("FromCryptoKey: %v", err)
	}
	return key
}

// mustHexInt parses a hex string into a big.Int or fails the test.
func mustHexInt(t *testing.T, s string) *big.Int {
	t.Helper()
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		t.Fatalf("invalid hex integer %q", s)
	}
	return n
}

// assertSameKey compares every integer of two private keys.
func assertSameKey(t *testing.T, got, want *PrivateKey) {
	t.Helper()
	if got.N().Cmp(want.N()) != 0 {
		t.Errorf("n mismatch")
	}
	if got.E().Cmp(want.E()) != 0 {
		t.Errorf("e = %s, want %s", got.E(), want.E())
	}
	if got.D().Cmp(want.D()) != 0 {
		t.Errorf("d mismatch")
	}
	gp, gq := got.Primes()
	wp, wq := want.Primes()
	if gp == nil || gq == nil {
		t.Fatal("loaded key has no prime factors")
	}
	if gp.Cmp(wp) != 0 || gq.Cmp(wq) != 0 {
		t.Errorf("prime factors mismatch")
	}
	if got.Size() != want.Size() {
		t.Errorf("size = %d, want %d", got.Size(), want.Size())
	}
}

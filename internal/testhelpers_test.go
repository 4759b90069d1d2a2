package internal

import (
	"crypto/rand"
	"crypto/rsa"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sensiblebit/rsakey"
)

var (
	testKeyOnce sync.Once
	testRSAKey  *rsa.PrivateKey
	testKeyErr  error
)

// testCryptoKey returns a shared 1024-bit RSA key so that only one key is
// generated per test binary.
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

// testKey returns the shared key as an rsakey.PrivateKey.
func testKey(t *testing.T) *rsakey.PrivateKey {
	t.Helper()
	key, err := rsakey.FromCryptoKey(testCryptoKey(t))
	if err != nil {
		t.Fatalf("FromCryptoKey: %v", err)
	}
	return key
}

// stubGenerate returns a GenerateFunc that hands back the shared key
// instead of searching for primes.
func stubGenerate(t *testing.T) rsakey.GenerateFunc {
	t.Helper()
	raw := testCryptoKey(t)
	return func(io.Reader, int) (*rsa.PrivateKey, error) { return raw, nil }
}

// keyPEM encodes the shared key, encrypted when passphrase is non-empty.
func keyPEM(t *testing.T, passphrase string) []byte {
	t.Helper()
	data, err := testKey(t).MarshalPEM(rsakey.PEMOptions{Passphrase: []byte(passphrase)})
	if err != nil {
		t.Fatalf("MarshalPEM: %v", err)
	}
	return data
}

// authorizedLine renders the shared key's public half as an authorized_keys line.
func authorizedLine(t *testing.T, comment string) []byte {
	t.Helper()
	line, err := testKey(t).Public().AuthorizedKey(comment)
	if err != nil {
		t.Fatalf("AuthorizedKey: %v", err)
	}
	return line
}

// writeFile writes data under dir and returns the path.
func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

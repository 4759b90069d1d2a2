package internal

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/sensiblebit/rsakey"
)

// LoadPrivateKey parses an RSA PRIVATE KEY file, trying each candidate
// passphrase in order when the file is encrypted. Structural errors are
// returned immediately; ErrDecryptionFailure is returned only after every
// candidate failed.
func LoadPrivateKey(data []byte, passwords []string) (*rsakey.PrivateKey, error) {
	env, err := rsakey.ParseEnvelope(data)
	if err != nil {
		return nil, err
	}
	if !env.Encrypted() {
		return rsakey.ParsePrivateKeyPEM(data, nil)
	}
	if len(passwords) == 0 {
		return nil, rsakey.ErrPassphraseRequired
	}

	var lastErr error
	for i, password := range passwords {
		key, err := rsakey.ParsePrivateKeyPEM(data, []byte(password))
		if err == nil {
			slog.Debug("decrypted key file", "candidate", i+1, "candidates", len(passwords))
			return key, nil
		}
		if !errors.Is(err, rsakey.ErrDecryptionFailure) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("tried %d passphrase(s): %w", len(passwords), lastErr)
}

// LoadPrivateKeyFile reads path and loads it with LoadPrivateKey.
func LoadPrivateKeyFile(path string, passwords []string) (*rsakey.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	key, err := LoadPrivateKey(data, passwords)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	slog.Debug("loaded private key", "path", path, "fingerprint", key.FingerprintSHA256(), "bits", key.BitLen())
	return key, nil
}

// LoadPublicKeyFile reads an authorized_keys style file and returns the
// first ssh-rsa key and its comment. A private key file is also accepted,
// in which case its public half is returned with an empty comment.
func LoadPublicKeyFile(path string, passwords []string) (*rsakey.PublicKey, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	if isPEM(data) {
		key, err := LoadPrivateKey(data, passwords)
		if err != nil {
			return nil, "", fmt.Errorf("loading %s: %w", path, err)
		}
		return key.Public(), "", nil
	}
	pub, comment, err := firstRSAAuthorizedKey(data)
	if err != nil {
		return nil, "", fmt.Errorf("loading %s: %w", path, err)
	}
	return pub, comment, nil
}

// firstRSAAuthorizedKey returns the first ssh-rsa entry in an authorized_keys
// file. Entries of other key types are skipped. When no RSA entry exists the
// first parse error is returned, or ErrUnsupportedKeyType if every entry was
// a foreign type.
func firstRSAAuthorizedKey(data []byte) (*rsakey.PublicKey, string, error) {
	var firstErr error
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		pub, comment, err := rsakey.ParseAuthorizedKey(line)
		if err == nil {
			return pub, comment, nil
		}
		if !errors.Is(err, rsakey.ErrUnsupportedKeyType) && firstErr == nil {
			firstErr = err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, "", err
	}
	if firstErr != nil {
		return nil, "", firstErr
	}
	return nil, "", fmt.Errorf("%w: no ssh-rsa key found", rsakey.ErrUnsupportedKeyType)
}

// isPEM reports whether data contains a PEM begin marker.
func isPEM(data []byte) bool {
	return bytes.Contains(data, []byte("-----BEGIN"))
}

package internal

import (
	"crypto/rsa"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sensiblebit/rsakey"
)

// MinKeygenBits is the smallest modulus keygen will produce.
const MinKeygenBits = 1024

// KeygenOptions holds parameters for key generation.
type KeygenOptions struct {
	Bits       int
	Comment    string
	Passphrase []byte
	// OutPath is the output directory. Empty means no files are written.
	OutPath string
	// KeyName is the private key file name; the public key gets ".pub".
	KeyName string
	// Generate defaults to rsa.GenerateKey.
	Generate rsakey.GenerateFunc
	// Rand supplies key and salt randomness. Defaults to crypto/rand.
	Rand io.Reader
}

// KeygenResult holds the generated key material and written file paths.
type KeygenResult struct {
	KeyPEM      string
	PubLine     string
	Fingerprint string
	KeyFile     string
	PubFile     string
}

// GenerateKeyFiles generates an RSA key and renders it as a key file and an
// authorized_keys line. With OutPath set both are written to disk; existing
// files are never overwritten.
func GenerateKeyFiles(opts KeygenOptions) (*KeygenResult, error) {
	if opts.Bits < MinKeygenBits {
		return nil, fmt.Errorf("key size %d bits is below the %d-bit minimum", opts.Bits, MinKeygenBits)
	}
	gen := opts.Generate
	if gen == nil {
		gen = rsa.GenerateKey
	}

	slog.Debug("generating key", "bits", opts.Bits)
	key, err := rsakey.GenerateKeyWith(gen, opts.Rand, opts.Bits)
	if err != nil {
		return nil, err
	}

	keyPEM, err := key.MarshalPEM(rsakey.PEMOptions{Passphrase: opts.Passphrase, Rand: opts.Rand})
	if err != nil {
		return nil, fmt.Errorf("encoding private key: %w", err)
	}
	pubLine, err := key.Public().AuthorizedKey(opts.Comment)
	if err != nil {
		return nil, fmt.Errorf("encoding public key: %w", err)
	}

	result := &KeygenResult{
		KeyPEM:      string(keyPEM),
		PubLine:     string(pubLine),
		Fingerprint: key.FingerprintSHA256(),
	}
	if opts.OutPath == "" {
		return result, nil
	}

	name := opts.KeyName
	if name == "" {
		name = "id_rsa"
	}
	if err := os.MkdirAll(opts.OutPath, 0700); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	result.KeyFile = filepath.Join(opts.OutPath, name)
	result.PubFile = result.KeyFile + ".pub"

	if err := writeNewFile(result.KeyFile, keyPEM, 0600); err != nil {
		return nil, err
	}
	if err := writeNewFile(result.PubFile, pubLine, 0644); err != nil {
		if rmErr := os.Remove(result.KeyFile); rmErr != nil {
			slog.Warn("removing orphaned key file", "path", result.KeyFile, "error", rmErr)
		}
		return nil, err
	}
	slog.Info("wrote key pair", "path", result.KeyFile, "fingerprint", result.Fingerprint)
	return result, nil
}

// writeNewFile writes data to a file that must not already exist.
func writeNewFile(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// RewriteKeyFile re-encodes key under a new passphrase (or none) and
// atomically replaces path, keeping its permissions.
func RewriteKeyFile(path string, key *rsakey.PrivateKey, passphrase []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	data, err := key.MarshalPEM(rsakey.PEMOptions{Passphrase: passphrase})
	if err != nil {
		return fmt.Errorf("encoding private key: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	slog.Info("rewrote key file", "path", path, "encrypted", len(passphrase) > 0)
	return nil
}

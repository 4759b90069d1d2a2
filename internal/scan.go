package internal

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sensiblebit/rsakey"
)

// skippableDirs contains directory names that cannot contain key files and
// are skipped during filesystem walks.
var skippableDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"__pycache__":  true,
	".tox":         true,
	".venv":        true,
	"vendor":       true,
}

// IsSkippableDir reports whether the given directory name should be skipped
// during scanning.
func IsSkippableDir(name string) bool {
	return skippableDirs[name]
}

// DefaultMaxScanFileSize bounds the files a scan reads. Key files are a few
// kilobytes; anything much larger is not worth reading.
const DefaultMaxScanFileSize = 1 << 20

// ScanInput configures ScanPath.
type ScanInput struct {
	Root        string
	Passwords   []string
	Catalog     *Catalog
	Skip        []string
	MaxFileSize int64
}

// ScanPath walks Root and records every RSA private key file and every
// ssh-rsa authorized_keys entry in the catalog. It returns the number of
// records inserted. Unreadable or foreign files are logged and skipped.
func ScanPath(ctx context.Context, in ScanInput) (int, error) {
	if in.Catalog == nil {
		return 0, errors.New("scan requires a catalog")
	}
	maxSize := in.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxScanFileSize
	}
	extraSkip := make(map[string]bool, len(in.Skip))
	for _, name := range in.Skip {
		extraSkip[name] = true
	}

	count := 0
	err := filepath.WalkDir(in.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != in.Root && (IsSkippableDir(d.Name()) || extraSkip[d.Name()]) {
				slog.Debug("skipping directory", "path", path)
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			slog.Warn("stat failed", "path", path, "error", err)
			return nil
		}
		if info.Size() > maxSize {
			slog.Debug("skipping large file", "path", path, "size", info.Size())
			return nil
		}

		records, err := scanFile(path, in.Passwords)
		if err != nil {
			slog.Warn("error processing file", "path", path, "error", err)
			return nil
		}
		for _, rec := range records {
			if err := in.Catalog.InsertKey(rec); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("walking %s: %w", in.Root, err)
	}
	return count, nil
}

// scanFile returns the catalog records for one file. Files that hold no
// RSA key yield no records and no error.
func scanFile(path string, passwords []string) ([]KeyRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if isPEM(data) {
		env, err := rsakey.ParseEnvelope(data)
		if err != nil {
			if errors.Is(err, rsakey.ErrUnsupportedKeyType) || errors.Is(err, rsakey.ErrMalformedContainer) {
				slog.Debug("not an RSA key file", "path", path, "error", err)
				return nil, nil
			}
			return nil, err
		}
		key, err := LoadPrivateKey(data, passwords)
		switch {
		case err == nil:
			slog.Debug("found private key", "path", path, "fingerprint", key.FingerprintSHA256())
			return []KeyRecord{NewKeyRecord(key.Public(), KindPrivate, path, "", env.Encrypted())}, nil
		case errors.Is(err, rsakey.ErrPassphraseRequired), errors.Is(err, rsakey.ErrDecryptionFailure):
			slog.Info("encrypted key not opened", "path", path)
			return []KeyRecord{NewLockedRecord(path)}, nil
		default:
			return nil, err
		}
	}

	if !bytes.Contains(data, []byte(rsakey.KeyAlgoRSA+" ")) {
		return nil, nil
	}
	var records []KeyRecord
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pub, comment, err := rsakey.ParseAuthorizedKey([]byte(line))
		if err != nil {
			continue
		}
		records = append(records, NewKeyRecord(pub, KindPublic, path, comment, false))
	}
	return records, scanner.Err()
}

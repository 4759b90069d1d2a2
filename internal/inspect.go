package internal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sensiblebit/rsakey"
)

// InspectResult holds the inspection details for one key.
type InspectResult struct {
	Type      string `json:"type"`
	Algorithm string `json:"algorithm"`
	Bits      int    `json:"bits,omitempty"`
	Exponent  string `json:"exponent,omitempty"`
	Comment   string `json:"comment,omitempty"`
	Encrypted bool   `json:"encrypted"`
	Cipher    string `json:"cipher,omitempty"`
	Locked    bool   `json:"locked,omitempty"`
	HasPrimes bool   `json:"has_primes,omitempty"`
	SHA256    string `json:"sha256_fingerprint,omitempty"`
	MD5       string `json:"md5_fingerprint,omitempty"`
}

// InspectFile reads a private key file or an authorized_keys file and
// returns one result per RSA key found.
func InspectFile(path string, passwords []string) ([]InspectResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var results []InspectResult
	if isPEM(data) {
		r, err := inspectPrivateKey(data, passwords)
		if err != nil {
			return nil, fmt.Errorf("inspecting %s: %w", path, err)
		}
		results = append(results, r)
	} else {
		results = inspectAuthorizedKeys(data, path)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("no RSA keys found in %s", path)
	}
	return results, nil
}

// inspectPrivateKey reports on a key file. An encrypted file none of the
// passwords open is reported as locked rather than failing.
func inspectPrivateKey(data []byte, passwords []string) (InspectResult, error) {
	env, err := rsakey.ParseEnvelope(data)
	if err != nil {
		return InspectResult{}, err
	}
	r := InspectResult{
		Type:      "private_key",
		Algorithm: rsakey.KeyAlgoRSA,
		Encrypted: env.Encrypted(),
		Cipher:    env.Cipher,
	}

	key, err := LoadPrivateKey(data, passwords)
	switch {
	case err == nil:
	case errors.Is(err, rsakey.ErrPassphraseRequired), errors.Is(err, rsakey.ErrDecryptionFailure):
		r.Locked = true
		return r, nil
	default:
		return InspectResult{}, err
	}

	fillPublic(&r, key.Public())
	p, q := key.Primes()
	r.HasPrimes = p != nil && q != nil
	return r, nil
}

func inspectAuthorizedKeys(data []byte, path string) []InspectResult {
	var results []InspectResult
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pub, comment, err := rsakey.ParseAuthorizedKey([]byte(line))
		if err != nil {
			slog.Debug("skipping authorized_keys line", "path", path, "line", lineNo, "error", err)
			continue
		}
		r := InspectResult{Type: "public_key", Algorithm: rsakey.KeyAlgoRSA, Comment: comment}
		fillPublic(&r, pub)
		results = append(results, r)
	}
	return results
}

func fillPublic(r *InspectResult, pub *rsakey.PublicKey) {
	r.Bits = pub.BitLen()
	r.Exponent = pub.E().String()
	r.SHA256 = pub.FingerprintSHA256()
	r.MD5 = pub.Fingerprint()
}

// FormatInspectResults formats inspection results as text or JSON.
func FormatInspectResults(results []InspectResult, format string) (string, error) {
	switch format {
	case "text":
		return formatInspectText(results), nil
	case "json":
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshaling JSON: %w", err)
		}
		return string(data) + "\n", nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use text or json)", format)
	}
}

func formatInspectText(results []InspectResult) string {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		switch r.Type {
		case "private_key":
			fmt.Fprintf(&sb, "Private Key:\n")
			if r.Encrypted {
				fmt.Fprintf(&sb, "  Encryption:  %s\n", r.Cipher)
			} else {
				fmt.Fprintf(&sb, "  Encryption:  none\n")
			}
			if r.Locked {
				fmt.Fprintf(&sb, "  Status:      locked (no passphrase matched)\n")
				continue
			}
			if !r.HasPrimes {
				fmt.Fprintf(&sb, "  Primes:      absent (cannot be re-saved)\n")
			}
		case "public_key":
			fmt.Fprintf(&sb, "Public Key:\n")
			if r.Comment != "" {
				fmt.Fprintf(&sb, "  Comment:     %s\n", r.Comment)
			}
		}
		fmt.Fprintf(&sb, "  Key:         %s %d\n", r.Algorithm, r.Bits)
		fmt.Fprintf(&sb, "  Exponent:    %s\n", r.Exponent)
		fmt.Fprintf(&sb, "  SHA-256:     %s\n", r.SHA256)
		fmt.Fprintf(&sb, "  MD5:         %s\n", r.MD5)
	}
	return sb.String()
}

package internal

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"

	"github.com/sensiblebit/rsakey"
)

// SignFile signs the contents of dataPath and returns the signature blob.
func SignFile(key rsakey.Signer, dataPath string) ([]byte, error) {
	data, err := os.ReadFile(dataPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dataPath, err)
	}
	sig, err := key.Sign(data)
	if err != nil {
		return nil, fmt.Errorf("signing %s: %w", dataPath, err)
	}
	slog.Debug("signed file", "path", dataPath, "bytes", len(data))
	return sig, nil
}

// EncodeSignatureText renders a signature blob as one line of base64.
func EncodeSignatureText(sig []byte) []byte {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sig)), base64.StdEncoding.EncodedLen(len(sig))+1)
	base64.StdEncoding.Encode(out, sig)
	return append(out, '\n')
}

// rawSignaturePrefix is how every binary ssh-rsa signature blob begins.
var rawSignaturePrefix = []byte("\x00\x00\x00\x07" + rsakey.KeyAlgoRSA)

// DecodeSignatureText accepts either a binary signature blob or its base64
// text form and returns the binary blob.
func DecodeSignatureText(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, rawSignaturePrefix) {
		return data, nil
	}
	sig, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(data)))
	if err != nil {
		return nil, fmt.Errorf("decoding base64 signature: %w", err)
	}
	return sig, nil
}

// VerifyResult holds the outcome of a signature check.
type VerifyResult struct {
	Valid       bool   `json:"valid"`
	Format      string `json:"format,omitempty"`
	Fingerprint string `json:"fingerprint"`
}

// VerifyFile checks a signature (binary or base64) over the contents of
// dataPath. A bad signature is a result, not an error.
func VerifyFile(key rsakey.Key, sigData []byte, dataPath string) (*VerifyResult, error) {
	data, err := os.ReadFile(dataPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dataPath, err)
	}
	sig, err := DecodeSignatureText(sigData)
	if err != nil {
		return nil, err
	}

	r := &VerifyResult{Valid: key.Verify(data, sig)}
	if format, _, err := rsakey.DecodeSignature(sig); err == nil {
		r.Format = format
	}
	if pub, ok := key.(interface{ FingerprintSHA256() string }); ok {
		r.Fingerprint = pub.FingerprintSHA256()
	}
	slog.Debug("verified signature", "path", dataPath, "valid", r.Valid)
	return r, nil
}

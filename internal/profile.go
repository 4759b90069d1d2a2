package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultBits is the RSA modulus size used when neither a flag nor the
// profile sets one.
const DefaultBits = 3072

// Profile holds defaults read from the YAML config file. Command-line flags
// override every field.
type Profile struct {
	// Bits is the default modulus size for keygen.
	Bits int `yaml:"bits,omitempty"`
	// Comment is appended to generated authorized_keys lines.
	Comment string `yaml:"comment,omitempty"`
	// KeyDir is where keygen writes files when -o is not given.
	KeyDir string `yaml:"keyDir,omitempty"`
	// KeyName is the base file name for generated keys.
	KeyName string `yaml:"keyName,omitempty"`
	// PasswordFile supplies passphrase candidates when --password-file is
	// not given.
	PasswordFile string `yaml:"passwordFile,omitempty"`
	// Skip lists extra directory names the scan command does not descend into.
	Skip []string `yaml:"skip,omitempty"`
}

// DefaultProfile returns the built-in defaults.
func DefaultProfile() Profile {
	return Profile{Bits: DefaultBits, KeyName: "id_rsa"}
}

// LoadProfile reads a YAML profile from path and fills unset fields from
// DefaultProfile. A missing file at an optional path yields the defaults.
func LoadProfile(path string, optional bool) (Profile, error) {
	profile := DefaultProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return profile, nil
		}
		return Profile{}, fmt.Errorf("reading profile %s: %w", path, err)
	}

	var loaded Profile
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Profile{}, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	if loaded.Bits < 0 {
		return Profile{}, fmt.Errorf("profile %s: bits must be positive, got %d", path, loaded.Bits)
	}

	if loaded.Bits != 0 {
		profile.Bits = loaded.Bits
	}
	if loaded.KeyName != "" {
		profile.KeyName = loaded.KeyName
	}
	profile.Comment = loaded.Comment
	profile.KeyDir = loaded.KeyDir
	profile.PasswordFile = loaded.PasswordFile
	profile.Skip = loaded.Skip
	return profile, nil
}

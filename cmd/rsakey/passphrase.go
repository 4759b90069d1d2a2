package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sensiblebit/rsakey"
	"github.com/sensiblebit/rsakey/internal"
)

// loadPasswords merges --passwords with --password-file, falling back to the
// profile's password file.
func loadPasswords() ([]string, error) {
	file := passwordFile
	if file == "" {
		file = profile.PasswordFile
	}
	passwords, err := internal.ProcessPasswords(passwordList, file)
	if err != nil {
		return nil, fmt.Errorf("loading passwords: %w", err)
	}
	return passwords, nil
}

// loadKey loads a private key file, trying the configured passphrases and
// then prompting once when stdin is a terminal.
func loadKey(path string) (*rsakey.PrivateKey, error) {
	passwords, err := loadPasswords()
	if err != nil {
		return nil, err
	}
	key, err := internal.LoadPrivateKeyFile(path, passwords)
	if err == nil {
		return key, nil
	}
	if !needsPassphrase(err) {
		return nil, err
	}

	pass, promptErr := internal.PromptPassphrase(internal.PromptPassphraseInput{
		In:     os.Stdin,
		Out:    os.Stderr,
		Prompt: fmt.Sprintf("Enter passphrase for %s: ", path),
	})
	if promptErr != nil {
		return nil, withPassphraseHint(err)
	}
	key, err = internal.LoadPrivateKeyFile(path, []string{string(pass)})
	if err != nil {
		return nil, withPassphraseHint(err)
	}
	return key, nil
}

func needsPassphrase(err error) bool {
	return errors.Is(err, rsakey.ErrPassphraseRequired) || errors.Is(err, rsakey.ErrDecryptionFailure)
}

// withPassphraseHint adds a usage hint to passphrase errors.
func withPassphraseHint(err error) error {
	switch {
	case errors.Is(err, rsakey.ErrDecryptionFailure):
		return fmt.Errorf("%w (wrong passphrase? supply it with --passwords or --password-file)", err)
	case errors.Is(err, rsakey.ErrPassphraseRequired):
		return fmt.Errorf("%w (supply it with --passwords or --password-file)", err)
	default:
		return err
	}
}

// newPassphrase returns the passphrase for a key being written: the first
// line of file when set, an interactive entry when prompt is set, or none.
func newPassphrase(file string, prompt bool) ([]byte, error) {
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("opening passphrase file: %w", err)
		}
		defer f.Close()
		line, err := bufio.NewReader(f).ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("reading passphrase file: %w", err)
		}
		pass := strings.TrimRight(line, "\r\n")
		if pass == "" {
			return nil, fmt.Errorf("passphrase file %s is empty", file)
		}
		return []byte(pass), nil
	}
	if !prompt {
		return nil, nil
	}
	pass, err := internal.PromptPassphrase(internal.PromptPassphraseInput{
		In:      os.Stdin,
		Out:     os.Stderr,
		Prompt:  "Enter new passphrase (empty for none): ",
		Confirm: true,
	})
	if err != nil {
		return nil, fmt.Errorf("reading new passphrase: %w", err)
	}
	return pass, nil
}

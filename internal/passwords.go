package internal

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

var (
	// ErrNotTerminal is returned when a passphrase prompt is requested but
	// stdin is not an interactive terminal.
	ErrNotTerminal = errors.New("stdin is not a terminal")

	// ErrPassphraseMismatch is returned when the confirmation entry differs.
	ErrPassphraseMismatch = errors.New("passphrases do not match")
)

// LoadPasswordsFromFile loads passphrases from a file, one per line. Only
// line endings are stripped: leading and trailing spaces are part of the
// passphrase. Empty lines are skipped.
func LoadPasswordsFromFile(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var passwords []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if pwd := strings.TrimRight(scanner.Text(), "\r"); pwd != "" {
			passwords = append(passwords, pwd)
		}
	}
	return passwords, scanner.Err()
}

// ProcessPasswords merges the comma-separated flag list and the password
// file into one ordered candidate list without duplicates.
func ProcessPasswords(passwordList string, passwordFile string) ([]string, error) {
	var passwords []string

	if passwordList != "" {
		passwords = append(passwords, strings.Split(passwordList, ",")...)
	}

	if passwordFile != "" {
		filePasswords, err := LoadPasswordsFromFile(passwordFile)
		if err != nil {
			return nil, fmt.Errorf("loading passwords from file: %w", err)
		}
		passwords = append(passwords, filePasswords...)
	}

	// Remove duplicates and empties while preserving order
	seen := make(map[string]bool)
	var uniquePasswords []string
	for _, pwd := range passwords {
		if pwd == "" || seen[pwd] {
			continue
		}
		seen[pwd] = true
		uniquePasswords = append(uniquePasswords, pwd)
	}

	return uniquePasswords, nil
}

// IsTerminal reports whether f is an interactive terminal, including Cygwin
// and MSYS pseudo terminals.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// PromptPassphraseInput configures PromptPassphrase.
type PromptPassphraseInput struct {
	In      *os.File
	Out     io.Writer
	Prompt  string
	Confirm bool
}

// PromptPassphrase reads a passphrase from the terminal without echo. With
// Confirm set the passphrase is read twice and must match.
func PromptPassphrase(input PromptPassphraseInput) ([]byte, error) {
	if !IsTerminal(input.In) {
		return nil, ErrNotTerminal
	}
	fd := int(input.In.Fd())

	fmt.Fprint(input.Out, input.Prompt)
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(input.Out)
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	if !input.Confirm {
		return pass, nil
	}

	fmt.Fprint(input.Out, "Confirm passphrase: ")
	again, err := term.ReadPassword(fd)
	fmt.Fprintln(input.Out)
	if err != nil {
		return nil, fmt.Errorf("reading passphrase confirmation: %w", err)
	}
	if !bytes.Equal(pass, again) {
		return nil, ErrPassphraseMismatch
	}
	return pass, nil
}

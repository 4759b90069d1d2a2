package internal

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestProcessPasswords_FromFile(t *testing.T) {
	// WHY: Passphrases can be loaded from a file for automation; verifies file-sourced entries follow the flag list in order.
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "passwords.txt")
	if err := os.WriteFile(path, []byte("filepass1\nfilepass2\n"), 0600); err != nil {
		t.Fatalf("write password file: %v", err)
	}

	result, err := ProcessPasswords("flagpass", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"flagpass", "filepass1", "filepass2"}
	if !slices.Equal(result, want) {
		t.Errorf("got %v, want %v", result, want)
	}
}

func TestProcessPasswords_Dedup(t *testing.T) {
	// WHY: Every candidate costs a full decrypt-and-parse attempt per key file; duplicates and empty entries from sloppy flag lists must be dropped.
	t.Parallel()
	result, err := ProcessPasswords("a,,b,a", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(result, []string{"a", "b"}) {
		t.Errorf("got %v, want [a b]", result)
	}

	none, err := ProcessPasswords("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no candidates, got %v", none)
	}
}

func TestProcessPasswords_BadFileReturnsError(t *testing.T) {
	// WHY: A nonexistent password file must return an error; silently ignoring it would surface later as a confusing "wrong passphrase" failure.
	t.Parallel()
	_, err := ProcessPasswords("", "/nonexistent/passwords.txt")
	if err == nil {
		t.Fatal("expected error for nonexistent password file, got nil")
	}
	if !strings.Contains(err.Error(), "loading passwords from file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadPasswordsFromFile_KeepsSpaces(t *testing.T) {
	// WHY: Passphrases may legitimately contain leading or trailing spaces; only blank lines and CRLF endings may be stripped.
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "passwords.txt")
	content := "pass1\r\n\n  spaced  \npass2\n\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write password file: %v", err)
	}

	passwords, err := LoadPasswordsFromFile(path)
	if err != nil {
		t.Fatalf("load passwords: %v", err)
	}

	want := []string{"pass1", "  spaced  ", "pass2"}
	if !slices.Equal(passwords, want) {
		t.Errorf("got %q, want %q", passwords, want)
	}
}

func TestPromptPassphrase_NotTerminal(t *testing.T) {
	// WHY: Scripts pipe files into stdin; the prompt must refuse instead of blocking on a read that can never be answered.
	t.Parallel()
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var out bytes.Buffer
	_, err = PromptPassphrase(PromptPassphraseInput{In: f, Out: &out, Prompt: "Passphrase: "})
	if !errors.Is(err, ErrNotTerminal) {
		t.Errorf("expected ErrNotTerminal, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("prompt written to non-terminal: %q", out.String())
	}
	if IsTerminal(f) {
		t.Error("regular file reported as terminal")
	}
}

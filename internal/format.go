package internal

import (
	"fmt"
	"strings"
)

// KeyAnnotation returns a parenthetical annotation like " (2 encrypted, 1 locked)"
// for non-zero counts, or an empty string if both are zero.
func KeyAnnotation(encrypted, locked int) string {
	var parts []string
	if encrypted > 0 {
		parts = append(parts, fmt.Sprintf("%d encrypted", encrypted))
	}
	if locked > 0 {
		parts = append(parts, fmt.Sprintf("%d locked", locked))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// FormatScanSummary renders the scan summary printed after a walk.
func FormatScanSummary(s *ScanSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\nFound %d distinct key(s) in %d file(s)%s\n", s.Distinct, s.Files, KeyAnnotation(s.Encrypted, s.Locked))
	if s.Files == 0 {
		return sb.String()
	}
	fmt.Fprintf(&sb, "  Private key files: %d\n", s.Private)
	fmt.Fprintf(&sb, "  Public key entries: %d\n", s.Public)
	for _, size := range s.Sizes {
		fmt.Fprintf(&sb, "  %5d bits:        %d\n", size.BitLength, size.Count)
	}
	return sb.String()
}

package rsakey

import (
	"crypto/sha1"
	"fmt"
)

// sha1DigestInfo is the DER prefix of a DigestInfo naming SHA-1 (RFC 8017
// Section 9.2, note 1).
var sha1DigestInfo = []byte{
	0x30, 0x21, 0x30, 0x09, 0x06, 0x05, 0x2b, 0x0e,
	0x03, 0x02, 0x1a, 0x05, 0x00, 0x04, 0x14,
}

// minPKCS1Filler is the fewest 0xff filler bytes a padded block may hold.
const minPKCS1Filler = 1

// PadPKCS1SHA1 builds the EMSA-PKCS1-v1_5 block for a SHA-1 digest:
//
//	00 01 FF..FF 00 || DigestInfo(SHA-1) || digest
//
// The result is exactly size bytes, the byte length of the modulus.
func PadPKCS1SHA1(digest []byte, size int) ([]byte, error) {
	if len(digest) != sha1.Size {
		return nil, fmt.Errorf("sha-1 digest must be %d bytes, got %d", sha1.Size, len(digest))
	}
	filler := size - 3 - len(sha1DigestInfo) - len(digest)
	if filler < minPKCS1Filler {
		return nil, fmt.Errorf("%w: %d-byte block cannot hold %d-byte digest info", ErrKeyTooSmall, size, len(sha1DigestInfo)+len(digest))
	}

	block := make([]byte, 0, size)
	block = append(block, 0x00, 0x01)
	for range filler {
		block = append(block, 0xff)
	}
	block = append(block, 0x00)
	block = append(block, sha1DigestInfo...)
	return append(block, digest...), nil
}

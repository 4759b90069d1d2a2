package rsakey

import (
	"bytes"
	"crypto/cipher"
	"crypto/des"
	"crypto/md5"
	"errors"
	"fmt"
)

const (
	// CipherDES3 is the DEK-Info name of the only supported file cipher.
	CipherDES3 = "DES-EDE3-CBC"

	// SaltSize is the length of the DEK-Info salt, which doubles as the IV.
	SaltSize = des.BlockSize

	des3KeySize = 24
)

// DeriveKey stretches a passphrase into keyLen bytes of cipher key using
// OpenSSL's EVP_BytesToKey with MD5 and a single iteration:
//
//	D_1 = MD5(passphrase || salt)
//	D_i = MD5(D_(i-1) || passphrase || salt)
//
// Only the first 8 bytes of salt take part, matching legacy PEM files.
func DeriveKey(passphrase, salt []byte, keyLen int) []byte {
	if len(salt) > SaltSize {
		salt = salt[:SaltSize]
	}
	key := make([]byte, 0, keyLen+md5.Size)
	var digest []byte
	for len(key) < keyLen {
		h := md5.New()
		h.Write(digest)
		h.Write(passphrase)
		h.Write(salt)
		digest = h.Sum(digest[:0])
		key = append(key, digest...)
	}
	return key[:keyLen]
}

// DecryptPayload decrypts a DES-EDE3-CBC key file payload. The IV is the
// first 8 bytes of salt. Padding is left in place and not checked; a wrong
// passphrase surfaces when the plaintext fails to parse.
func DecryptPayload(ciphertext, passphrase, salt []byte) ([]byte, error) {
	block, err := newDES3(passphrase, salt)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 || len(ciphertext)%des.BlockSize != 0 {
		return nil, fmt.Errorf("%w: encrypted payload is %d bytes, not a multiple of the %d-byte block", ErrMalformedContainer, len(ciphertext), des.BlockSize)
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, salt[:SaltSize]).CryptBlocks(plaintext, ciphertext)
	return plaintext, nil
}

// EncryptPayload pads plaintext with RFC 1423 padding (1 to 8 bytes, each
// holding the pad length, as OpenSSL writes it) and encrypts it with
// DES-EDE3-CBC under a key derived from passphrase and salt.
func EncryptPayload(plaintext, passphrase, salt []byte) ([]byte, error) {
	block, err := newDES3(passphrase, salt)
	if err != nil {
		return nil, err
	}
	pad := des.BlockSize - len(plaintext)%des.BlockSize
	padded := make([]byte, len(plaintext), len(plaintext)+pad)
	copy(padded, plaintext)
	padded = append(padded, bytes.Repeat([]byte{byte(pad)}, pad)...)

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, salt[:SaltSize]).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

func newDES3(passphrase, salt []byte) (cipher.Block, error) {
	if len(salt) < SaltSize {
		return nil, fmt.Errorf("%w: salt is %d bytes, need %d", ErrMalformedContainer, len(salt), SaltSize)
	}
	block, err := des.NewTripleDESCipher(DeriveKey(passphrase, salt, des3KeySize))
	if err != nil {
		return nil, errors.Join(ErrMalformedContainer, err)
	}
	return block, nil
}

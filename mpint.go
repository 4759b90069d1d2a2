package rsakey

import (
	"math/big"
)

var bigOne = big.NewInt(1)

// EncodeMPInt returns the SSH mpint body of x (RFC 4251 Section 5) without
// the 4-byte length prefix: minimal big-endian two's complement. Positive
// values whose top bit would be set get a leading 0x00 byte; zero encodes
// as an empty byte string.
func EncodeMPInt(x *big.Int) []byte {
	switch x.Sign() {
	case 0:
		return []byte{}
	case 1:
		b := x.Bytes()
		if b[0]&0x80 != 0 {
			return append([]byte{0}, b...)
		}
		return b
	}

	// Two's complement of a negative value: invert the bytes of |x|-1.
	nMinus1 := new(big.Int).Neg(x)
	nMinus1.Sub(nMinus1, bigOne)
	b := nMinus1.Bytes()
	for i := range b {
		b[i] ^= 0xff
	}
	if len(b) == 0 || b[0]&0x80 == 0 {
		return append([]byte{0xff}, b...)
	}
	return b
}

// DecodeMPInt is the inverse of EncodeMPInt. When signed is false the bytes
// are always read as an unsigned magnitude. When signed is true a set top bit
// in b[0] marks a negative two's complement value.
func DecodeMPInt(b []byte, signed bool) *big.Int {
	x := new(big.Int).SetBytes(b)
	if signed && len(b) > 0 && b[0]&0x80 != 0 {
		x.Sub(x, new(big.Int).Lsh(bigOne, uint(8*len(b))))
	}
	return x
}

// magnitudeLen is the byte length of x's unsigned encoding, with no sign byte.
func magnitudeLen(x *big.Int) int {
	return (x.BitLen() + 7) / 8
}

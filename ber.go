package rsakey

import (
	"fmt"
	"math/big"
)

const (
	berTagInteger  = 0x02
	berTagSequence = 0x30

	// maxBERLengthOctets bounds the long-form length prefix. Four octets
	// cover any payload a key file can carry.
	maxBERLengthOctets = 4
)

// BERValue is a decoded BER element: either a BERInteger or a BERSequence.
type BERValue interface {
	berValue()
}

// BERInteger is an ASN.1 INTEGER.
type BERInteger struct {
	Value *big.Int
}

// BERSequence is an ASN.1 SEQUENCE of nested values.
type BERSequence []BERValue

func (BERInteger) berValue()  {}
func (BERSequence) berValue() {}

// DecodeBER decodes exactly one SEQUENCE or INTEGER element from data.
// Trailing bytes after the element are an error.
func DecodeBER(data []byte) (BERValue, error) {
	v, rest, err := decodeBERPrefix(data)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after top-level element", ErrMalformedContainer, len(rest))
	}
	return v, nil
}

// decodeBERPrefix decodes the first element of data and returns the bytes
// that follow it.
func decodeBERPrefix(data []byte) (BERValue, []byte, error) {
	if len(data) < 2 {
		return nil, nil, fmt.Errorf("%w: element header truncated", ErrMalformedContainer)
	}
	tag := data[0]
	length, hdrLen, err := decodeBERLength(data[1:])
	if err != nil {
		return nil, nil, err
	}
	start := 1 + hdrLen
	if length > len(data)-start {
		return nil, nil, fmt.Errorf("%w: element declares %d bytes, %d available", ErrMalformedContainer, length, len(data)-start)
	}
	body := data[start : start+length]
	rest := data[start+length:]

	switch tag {
	case berTagInteger:
		if length == 0 {
			return nil, nil, fmt.Errorf("%w: empty INTEGER", ErrMalformedContainer)
		}
		return BERInteger{Value: DecodeMPInt(body, true)}, rest, nil
	case berTagSequence:
		seq := BERSequence{}
		for len(body) > 0 {
			var child BERValue
			child, body, err = decodeBERPrefix(body)
			if err != nil {
				return nil, nil, err
			}
			seq = append(seq, child)
		}
		return seq, rest, nil
	default:
		return nil, nil, fmt.Errorf("%w: unsupported tag 0x%02x", ErrMalformedContainer, tag)
	}
}

// decodeBERLength parses a definite length and returns it together with the
// number of octets the length itself occupied.
func decodeBERLength(data []byte) (int, int, error) {
	first := data[0]
	if first < 0x80 {
		return int(first), 1, nil
	}
	n := int(first & 0x7f)
	if n == 0 {
		return 0, 0, fmt.Errorf("%w: indefinite length not supported", ErrMalformedContainer)
	}
	if n > maxBERLengthOctets {
		return 0, 0, fmt.Errorf("%w: length uses %d octets", ErrMalformedContainer, n)
	}
	if len(data) < 1+n {
		return 0, 0, fmt.Errorf("%w: length octets truncated", ErrMalformedContainer)
	}
	length := 0
	for _, b := range data[1 : 1+n] {
		length = length<<8 | int(b)
	}
	if length < 0 {
		return 0, 0, fmt.Errorf("%w: length overflows", ErrMalformedContainer)
	}
	return length, 1 + n, nil
}

// EncodeBER encodes v with minimal (DER) lengths.
func EncodeBER(v BERValue) []byte {
	switch t := v.(type) {
	case BERInteger:
		body := EncodeMPInt(t.Value)
		if len(body) == 0 {
			body = []byte{0}
		}
		return appendBERElement(nil, berTagInteger, body)
	case BERSequence:
		var body []byte
		for _, child := range t {
			body = append(body, EncodeBER(child)...)
		}
		return appendBERElement(nil, berTagSequence, body)
	default:
		panic(fmt.Sprintf("rsakey: unknown BER value %T", v))
	}
}

// EncodeBERIntegers encodes vals as a SEQUENCE of INTEGERs.
func EncodeBERIntegers(vals ...*big.Int) []byte {
	seq := make(BERSequence, 0, len(vals))
	for _, v := range vals {
		seq = append(seq, BERInteger{Value: v})
	}
	return EncodeBER(seq)
}

func appendBERElement(dst []byte, tag byte, body []byte) []byte {
	dst = append(dst, tag)
	dst = appendBERLength(dst, len(body))
	return append(dst, body...)
}

func appendBERLength(dst []byte, length int) []byte {
	if length < 0x80 {
		return append(dst, byte(length))
	}
	var octets []byte
	for l := length; l > 0; l >>= 8 {
		octets = append([]byte{byte(l)}, octets...)
	}
	dst = append(dst, 0x80|byte(len(octets)))
	return append(dst, octets...)
}

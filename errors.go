package rsakey

import "errors"

// Sentinel errors returned (wrapped) by the codec. Match them with errors.Is.
var (
	// ErrMalformedContainer reports a BER structural violation in a private
	// key payload: bad tag, truncated length, wrong arity or version.
	ErrMalformedContainer = errors.New("malformed key container")

	// ErrMalformedBlob reports an SSH wire blob that ends before all of its
	// fields were read.
	ErrMalformedBlob = errors.New("malformed ssh blob")

	// ErrUnsupportedKeyType reports a key whose algorithm tag or PEM type is
	// not ssh-rsa. It is the expected outcome when probing several key types.
	ErrUnsupportedKeyType = errors.New("unsupported key type")

	// ErrUnsupportedCipher reports a private key file encrypted with a cipher
	// other than DES-EDE3-CBC.
	ErrUnsupportedCipher = errors.New("unsupported key file cipher")

	// ErrInvalidKeyState reports an operation that needs key material the
	// instance does not hold.
	ErrInvalidKeyState = errors.New("invalid key state")

	// ErrDecryptionFailure reports an encrypted key file whose decrypted
	// payload does not parse. The passphrase is most likely wrong.
	ErrDecryptionFailure = errors.New("decrypted key does not parse (wrong passphrase?)")

	// ErrPassphraseRequired reports an encrypted key file loaded without a
	// passphrase.
	ErrPassphraseRequired = errors.New("key file is encrypted, passphrase required")

	// ErrKeyTooSmall reports a modulus too short to hold a padded SHA-1
	// DigestInfo block.
	ErrKeyTooSmall = errors.New("rsa modulus too small for sha-1 digest info")
)

// Package crypto implements the Floodgate token envelope: a magic header with
// a version character followed by the base64 encoded AES-GCM sealed payload.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// Floodgate token constants.
const (
	Identifier = "^Floodgate^"
	// versionOffset is added to the data version to build the version character.
	versionOffset = 0x3D

	IVLength  = 12
	TagLength = 16

	// MaxTokenLength bounds the size of a token before anything is decoded.
	MaxTokenLength = 4096
)

// Supported data versions.
const (
	// Version1 is the format sent by Geyser: text payload, standard base64.
	Version1 = 1
	// Version2 is the format of Floodgate 3: binary payload, url-safe base64.
	Version2 = 2

	LatestVersion = Version2
)

var (
	// ErrInvalidHeader indicates the data is not a Floodgate token at all.
	ErrInvalidHeader = errors.New("not floodgate data: invalid header")
	// ErrUnsupportedVersion indicates a Floodgate token of an unknown version.
	ErrUnsupportedVersion = errors.New("unsupported floodgate data version")
	// ErrMalformed is wrapped by DecryptError when the encoding of a token is broken.
	ErrMalformed = errors.New("malformed token")
	// ErrTokenTooLong is returned by Encrypt for plaintexts too large for a token.
	ErrTokenTooLong = errors.New("floodgate token too long")
)

// DecryptError reports a token that has a valid header but could not be
// opened. It indicates tampered, corrupted or foreign-key encrypted data.
type DecryptError struct {
	Version int
	Err     error
}

func (e *DecryptError) Error() string {
	return fmt.Sprintf("failed to decrypt floodgate data (version %d): %v", e.Version, e.Err)
}

func (e *DecryptError) Unwrap() error { return e.Err }

// Header returns the token header of the given data version.
func Header(version int) string {
	return Identifier + string(rune(version+versionOffset))
}

// Version returns the data version of token or -1 if token does
// not start with the Floodgate header.
func Version(token []byte) int {
	if len(token) <= len(Identifier) || !bytes.HasPrefix(token, []byte(Identifier)) {
		return -1
	}
	v := int(token[len(Identifier)]) - versionOffset
	if v < 0 {
		return -1
	}
	return v
}

// VersionString is like Version for string tokens.
func VersionString(token string) int {
	if len(token) <= len(Identifier) || token[:len(Identifier)] != Identifier {
		return -1
	}
	return Version([]byte(token[:len(Identifier)+1]))
}

func toppingFor(version int) (Topping, error) {
	switch version {
	case Version1:
		return StdTopping, nil
	case Version2:
		return URLTopping, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
}

// Cipher encrypts and decrypts Floodgate tokens with AES-GCM.
// It is safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher returns a Cipher for a 16, 24 or 32 byte AES key.
func NewCipher(key []byte) (*Cipher, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("invalid key length for AES: must be 16, 24, or 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCMWithNonceSize(block, IVLength)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext into a token of the given data version using a random IV.
// Tokens longer than MaxTokenLength are rejected, Decrypt would not accept them.
func (c *Cipher) Encrypt(version int, plaintext []byte) ([]byte, error) {
	topping, err := toppingFor(version)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, IVLength)
	if _, err = io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("error generating iv: %w", err)
	}
	sealed := c.aead.Seal(nil, iv, plaintext, nil)
	body := topping.Encode([][]byte{iv, sealed})

	header := Header(version)
	if n := len(header) + len(body); n > MaxTokenLength {
		return nil, fmt.Errorf("%w: token length %d exceeds %d", ErrTokenTooLong, n, MaxTokenLength)
	}
	token := make([]byte, 0, len(header)+len(body))
	token = append(token, header...)
	return append(token, body...), nil
}

// Decrypt opens token and returns the plaintext and its data version.
//
// It returns ErrInvalidHeader for data that is no Floodgate token,
// ErrUnsupportedVersion for unknown versions and a *DecryptError
// for everything that fails after the header was recognized.
func (c *Cipher) Decrypt(token []byte) (plaintext []byte, version int, err error) {
	version = Version(token)
	if version == -1 {
		return nil, -1, ErrInvalidHeader
	}
	topping, err := toppingFor(version)
	if err != nil {
		return nil, version, err
	}
	if len(token) > MaxTokenLength {
		return nil, version, &DecryptError{Version: version, Err: fmt.Errorf(
			"%w: token length %d exceeds %d", ErrMalformed, len(token), MaxTokenLength)}
	}

	sections, err := topping.Decode(token[len(Identifier)+1:])
	if err != nil {
		return nil, version, &DecryptError{Version: version, Err: err}
	}
	if len(sections) != 2 {
		return nil, version, &DecryptError{Version: version, Err: fmt.Errorf(
			"%w: expected 2 sections, got %d", ErrMalformed, len(sections))}
	}
	iv, sealed := sections[0], sections[1]
	if len(iv) != IVLength {
		return nil, version, &DecryptError{Version: version, Err: fmt.Errorf(
			"%w: iv length %d", ErrMalformed, len(iv))}
	}
	if len(sealed) < TagLength {
		return nil, version, &DecryptError{Version: version, Err: fmt.Errorf(
			"%w: ciphertext shorter than tag", ErrMalformed)}
	}

	plaintext, err = c.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, version, &DecryptError{Version: version, Err: err}
	}
	return plaintext, version, nil
}

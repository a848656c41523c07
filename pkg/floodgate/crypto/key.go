package crypto

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
)

// KeySize is the size of generated keys (AES-128, like Floodgate).
const KeySize = 16

// GenerateKey returns a new random AES key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("error generating key: %w", err)
	}
	return key, nil
}

// GenerateKeyToFile writes a new random key to path, creating parent directories.
// An existing file is only replaced if overwrite is true.
func GenerateKeyToFile(path string, overwrite bool) ([]byte, error) {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("key file %q already exists", path)
		}
	}
	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("error creating key directory: %w", err)
	}
	if err = os.WriteFile(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("error writing key file: %w", err)
	}
	return key, nil
}

// LoadKey reads the key at path. The file holds either the raw key
// bytes (as written by Floodgate and GenerateKeyToFile) or the key
// in base64 text form.
func LoadKey(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading key file: %w", err)
	}
	text := string(bytes.TrimSpace(b))
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		if key, err := enc.Strict().DecodeString(text); err == nil && validKeyLength(len(key)) {
			return key, nil
		}
	}
	if validKeyLength(len(b)) {
		return b, nil
	}
	return nil, fmt.Errorf("key file %q has invalid length %d, expected 16, 24 or 32 bytes", path, len(b))
}

// LoadCipher loads the key at path and returns a Cipher for it.
func LoadCipher(path string) (*Cipher, error) {
	key, err := LoadKey(path)
	if err != nil {
		return nil, err
	}
	return NewCipher(key)
}

func validKeyLength(n int) bool { return n == 16 || n == 24 || n == 32 }

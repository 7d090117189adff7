package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// TokenCipher encrypts OAuth refresh tokens before they are stored. The key
// is 32 bytes, hex encoded in config.
type TokenCipher struct {
	key []byte
}

func NewTokenCipher(hexKey string) (*TokenCipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("token cipher key is not valid hex: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("token cipher key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &TokenCipher{key: key}, nil
}

func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *TokenCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}

	if len(raw) < aead.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypting token: %w", err)
	}
	return string(plain), nil
}

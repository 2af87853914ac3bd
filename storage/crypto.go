// Package storage implements the attachment at-rest encryption store.
//
// Files are addressed under a configured root directory by message ID then
// filename. Each file holds a random IV followed by the AES-CTR encryption
// of the payload. The key is derived once per process from a configured
// secret and never stored with the ciphertext.
//
// The scheme provides confidentiality only: there is no integrity tag, so a
// tampered file decrypts deterministically to garbage instead of failing.
package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	apperrors "github.com/targoninc/venel-api/errors"
)

const keyLength = 32 // AES-256

type CryptoStore struct {
	root string
	key  []byte
}

// NewCryptoStore derives the per-process encryption key from secret and
// creates the storage root if needed. Missing secret or root is a startup
// error; nothing at request time can produce it.
func NewCryptoStore(root, secret string) (*CryptoStore, error) {
	if secret == "" {
		return nil, apperrors.ErrMissingFileSecret
	}
	if root == "" {
		return nil, apperrors.ErrMissingFileFolder
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("creating attachment root: %w", err)
	}

	key := make([]byte, keyLength)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("attachment-encryption"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("deriving attachment key: %w", err)
	}
	return &CryptoStore{root: root, key: key}, nil
}

func (s *CryptoStore) messageDir(messageID uuid.UUID) string {
	return filepath.Join(s.root, messageID.String())
}

func (s *CryptoStore) path(messageID uuid.UUID, filename string) string {
	// Base strips any path separators a client smuggles into the filename.
	return filepath.Join(s.messageDir(messageID), filepath.Base(filename))
}

// Store encrypts data and writes IV-prefixed ciphertext addressed by
// (messageID, filename). A failure aborts only this attachment; the message
// record itself is unaffected.
func (s *CryptoStore) Store(messageID uuid.UUID, filename string, data []byte) error {
	if err := os.MkdirAll(s.messageDir(messageID), 0o750); err != nil {
		return err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return err
	}
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return err
	}

	out := make([]byte, aes.BlockSize+len(data))
	copy(out, iv)
	cipher.NewCTR(block, iv).XORKeyStream(out[aes.BlockSize:], data)

	return os.WriteFile(s.path(messageID, filename), out, 0o640)
}

// Read splits the IV prefix and decrypts the remainder.
func (s *CryptoStore) Read(messageID uuid.UUID, filename string) ([]byte, error) {
	raw, err := os.ReadFile(s.path(messageID, filename))
	if err != nil {
		return nil, err
	}
	if len(raw) < aes.BlockSize {
		return nil, apperrors.ErrCorruptCiphertext
	}
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}

	data := make([]byte, len(raw)-aes.BlockSize)
	cipher.NewCTR(block, raw[:aes.BlockSize]).XORKeyStream(data, raw[aes.BlockSize:])
	return data, nil
}

// DeleteMessage removes a message's entire attachment unit as one operation.
// Deleting a message that never had attachments is a no-op.
func (s *CryptoStore) DeleteMessage(messageID uuid.UUID) error {
	return os.RemoveAll(s.messageDir(messageID))
}

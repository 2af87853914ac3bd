package storage

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	apperrors "github.com/targoninc/venel-api/errors"
)

func newTestStore(t *testing.T) *CryptoStore {
	t.Helper()
	store, err := NewCryptoStore(t.TempDir(), "server-secret")
	require.NoError(t, err)
	return store
}

func TestCryptoStore_Requires_Secret_And_Root(t *testing.T) {
	req := require.New(t)

	_, err := NewCryptoStore(t.TempDir(), "")
	req.ErrorIs(err, apperrors.ErrMissingFileSecret)

	_, err = NewCryptoStore("", "secret")
	req.ErrorIs(err, apperrors.ErrMissingFileFolder)
}

func TestCryptoStore_Round_Trip(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	messageID := uuid.New()

	multiMegabyte := make([]byte, 3*1024*1024)
	_, err := rand.Read(multiMegabyte)
	req.NoError(err)

	payloads := map[string][]byte{
		"empty.bin": {},
		"one.bin":   {0x42},
		"big.bin":   multiMegabyte,
	}
	for filename, data := range payloads {
		req.NoError(store.Store(messageID, filename, data))
		got, err := store.Read(messageID, filename)
		req.NoError(err, filename)
		req.Equal(data, got, filename)
	}
}

func TestCryptoStore_Same_Filename_Across_Messages(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)
	first, second := uuid.New(), uuid.New()

	req.NoError(store.Store(first, "report.pdf", []byte("first payload")))
	req.NoError(store.Store(second, "report.pdf", []byte("second payload")))

	gotFirst, err := store.Read(first, "report.pdf")
	req.NoError(err)
	gotSecond, err := store.Read(second, "report.pdf")
	req.NoError(err)

	req.Equal([]byte("first payload"), gotFirst)
	req.Equal([]byte("second payload"), gotSecond)
}

func TestCryptoStore_Ciphertext_Is_Not_Plaintext_And_IVs_Differ(t *testing.T) {
	req := require.New(t)
	root := t.TempDir()
	store, err := NewCryptoStore(root, "server-secret")
	req.NoError(err)
	messageID := uuid.New()
	data := []byte("identical plaintext")

	req.NoError(store.Store(messageID, "a.txt", data))
	req.NoError(store.Store(messageID, "b.txt", data))

	rawA, err := os.ReadFile(filepath.Join(root, messageID.String(), "a.txt"))
	req.NoError(err)
	rawB, err := os.ReadFile(filepath.Join(root, messageID.String(), "b.txt"))
	req.NoError(err)

	req.NotContains(string(rawA), "identical")
	// Random IV per file: identical plaintexts never share ciphertext.
	req.False(bytes.Equal(rawA, rawB))
}

func TestCryptoStore_Truncated_File_Fails_Deterministically(t *testing.T) {
	req := require.New(t)
	root := t.TempDir()
	store, err := NewCryptoStore(root, "server-secret")
	req.NoError(err)
	messageID := uuid.New()

	req.NoError(store.Store(messageID, "x.bin", []byte("payload")))
	path := filepath.Join(root, messageID.String(), "x.bin")
	req.NoError(os.WriteFile(path, []byte{0x1, 0x2}, 0o640))

	_, err = store.Read(messageID, "x.bin")
	req.ErrorIs(err, apperrors.ErrCorruptCiphertext)
}

func TestCryptoStore_DeleteMessage_Removes_The_Whole_Unit(t *testing.T) {
	req := require.New(t)
	root := t.TempDir()
	store, err := NewCryptoStore(root, "server-secret")
	req.NoError(err)
	messageID := uuid.New()

	req.NoError(store.Store(messageID, "a.txt", []byte("a")))
	req.NoError(store.Store(messageID, "b.txt", []byte("b")))

	req.NoError(store.DeleteMessage(messageID))

	_, err = os.Stat(filepath.Join(root, messageID.String()))
	req.True(os.IsNotExist(err))

	// Deleting a message that never had attachments is a no-op.
	req.NoError(store.DeleteMessage(uuid.New()))
}

func TestCryptoStore_Read_Missing_Attachment(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)

	_, err := store.Read(uuid.New(), "nope.txt")

	req.Error(err)
}

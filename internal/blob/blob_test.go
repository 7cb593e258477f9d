package blob

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgermatch/internal/logging"
	"ledgermatch/internal/models"
)

func TestFileStorePutGet(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), &logging.MockLogger{})
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }

	content := []byte("INVOICE #1234\nAmount Due: $125.00\n")
	ref, checksum, err := store.Put(context.Background(), bytes.NewReader(content), models.DocTypeInvoice, "invoice-march.txt")
	require.NoError(t, err)

	want := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(want[:]), checksum)

	assert.True(t, strings.HasPrefix(ref, filepath.Join("documents", "invoice", "2024", "03")), ref)
	assert.True(t, strings.HasSuffix(ref, ".txt"), ref)

	got, err := store.Get(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestFileStoreUnclassifiedType(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), &logging.MockLogger{})
	require.NoError(t, err)

	ref, _, err := store.Put(context.Background(), strings.NewReader("scan"), "", "scan")
	require.NoError(t, err)
	assert.Contains(t, ref, "unclassified")
	assert.False(t, strings.Contains(ref, "."), "no extension expected: %s", ref)
}

func TestFileStoreRejectsEscapingRefs(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), &logging.MockLogger{})
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "../outside")
	assert.Error(t, err)
	_, err = store.Get(context.Background(), "/etc/passwd")
	assert.Error(t, err)
}

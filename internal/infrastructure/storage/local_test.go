package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStoreWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exportacoes")
	store := NewLocalStore(dir)

	path, err := store.Write(context.Background(), "export_2026-07_abc.json", []byte(`{"ok":true}`))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "export_2026-07_abc.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, `{"ok":true}`, string(data))
}

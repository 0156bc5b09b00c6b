// Package storage implementa a gravação local dos arquivos de lote.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vlourenco/pdv-fiscal/internal/application/accounting"
)

var _ accounting.FileStore = (*LocalStore)(nil)

// LocalStore grava os arquivos de exportação em um diretório do disco.
type LocalStore struct {
	dir string
}

// NewLocalStore constrói o store; o diretório é criado na primeira escrita.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

// Write grava o arquivo e devolve o caminho completo.
func (s *LocalStore) Write(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("criar diretório de exportação: %w", err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("gravar arquivo de exportação: %w", err)
	}
	return path, nil
}

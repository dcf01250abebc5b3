package cryptox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LoadOrCreatePepper reads the pepper from path, generating and persisting a
// new random one when the file does not exist yet. Losing the file
// invalidates every stored password hash.
func LoadOrCreatePepper(path string) ([]byte, error) {
	path = filepath.Clean(path)

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		pepper := strings.TrimSpace(string(b))
		if pepper == "" {
			return nil, fmt.Errorf("cryptox: pepper file %s is empty", path)
		}
		return []byte(pepper), nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("cryptox: read pepper: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("cryptox: create pepper dir: %w", err)
	}

	pepper, err := RandomSecret(PepperBytes)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, []byte(pepper), 0o600); err != nil {
		return nil, fmt.Errorf("cryptox: write pepper: %w", err)
	}
	return []byte(pepper), nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// secretReader reads Docker secrets from a directory. Local runs without
// mounted secrets may pass the same value through an upper-cased env var.
type secretReader struct {
	dir string
}

func newSecretReader(dir string) secretReader {
	return secretReader{dir: dir}
}

// Read returns the secret or an error when neither the file nor the env
// variable provides a non-empty value.
func (r secretReader) Read(name string) (string, error) {
	filePath := filepath.Join(r.dir, name)
	secretBytes, err := os.ReadFile(filePath)
	if err == nil {
		secret := strings.TrimSpace(string(secretBytes))
		if secret == "" {
			return "", fmt.Errorf("secret file %s is empty", filePath)
		}
		return secret, nil
	}

	if value := strings.TrimSpace(os.Getenv(strings.ToUpper(name))); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("failed to read secret %s (file %s): %w", name, filePath, err)
}

// Optional is Read without the error.
func (r secretReader) Optional(name string) string {
	value, err := r.Read(name)
	if err != nil {
		return ""
	}
	return value
}

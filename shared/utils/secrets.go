package utils

import (
	"fmt"
	"os"
	"strings"
)

// SecretsDir is where Docker mounts secrets.
var SecretsDir = "/run/secrets"

// ReadSecret reads a Docker secret by name.
func ReadSecret(secretName string) (string, error) {
	filePath := fmt.Sprintf("%s/%s", strings.TrimRight(SecretsDir, "/"), secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}

// SecretOrValue returns the named secret when it can be read and fallback otherwise.
func SecretOrValue(secretName, fallback string) string {
	if secretName == "" {
		return fallback
	}
	if secret, err := ReadSecret(secretName); err == nil {
		return secret
	}
	return fallback
}

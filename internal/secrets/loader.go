package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source describes how to load a secret value.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline secret value provided via configuration or flags.
	Value string
	// File points to a file containing the secret value. When set it takes
	// precedence over Value.
	File string
	// Env names an environment variable consulted when neither File nor Value is set.
	Env string
	// FileEnv names an environment variable holding a path to the secret file.
	// It is consulted before Env.
	FileEnv string
}

// Load returns the resolved secret value from the provided source. Lookup order is
// File, Value, the file named by FileEnv, then Env. The returned secret is always
// trimmed. An error is returned when no source yields a usable secret.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file == "" && strings.TrimSpace(src.Value) == "" && src.FileEnv != "" {
		file = strings.TrimSpace(os.Getenv(src.FileEnv))
	}

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" && src.Env != "" {
		secret = strings.TrimSpace(os.Getenv(src.Env))
	}
	if secret == "" {
		return "", fmt.Errorf("%s is not configured", name)
	}

	return secret, nil
}

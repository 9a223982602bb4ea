package domain

import (
	"fmt"
	"strings"
)

const maxNamespaceBytes = 120

func ValidateCollectionName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrCollectionRequired
	}
	if name != strings.TrimSpace(name) {
		return fmt.Errorf("%w: %q has surrounding whitespace", ErrInvalidCollectionName, name)
	}
	if strings.ContainsAny(name, "$\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidCollectionName, name)
	}
	if strings.HasPrefix(name, "system.") {
		return fmt.Errorf("%w: %q uses the reserved system prefix", ErrInvalidCollectionName, name)
	}
	if len(name) > maxNamespaceBytes {
		return fmt.Errorf("%w: %q is longer than %d bytes", ErrInvalidCollectionName, name, maxNamespaceBytes)
	}
	return nil
}

func ValidateDatabaseName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrDatabaseRequired
	}
	if strings.ContainsAny(name, "/\\. \"$*<>:|?\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidDatabaseName, name)
	}
	if len(name) >= 64 {
		return fmt.Errorf("%w: %q is too long", ErrInvalidDatabaseName, name)
	}
	return nil
}

// Namespace joins database and collection the way sharding commands expect.
func Namespace(database, collection string) string {
	return database + "." + collection
}

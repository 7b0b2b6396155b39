// Package repository persists measurement histories.
//
// Each backend stores a user's full history as one unit and replaces it on
// every write. Both implement history.Persister.
package repository

import (
	"strings"

	"github.com/okian/tailor/internal/history"
)

// Backend labels used for metrics.
const (
	backendFile = "file"
	backendSQL  = "sql"
)

var (
	_ history.Persister = (*FileStore)(nil)
	_ history.Persister = (*SQLStore)(nil)
)

// validUser rejects names that cannot be stored as a single path element.
func validUser(user string) bool {
	if user == "" || user == "." || user == ".." {
		return false
	}
	return !strings.ContainsAny(user, `/\`+"\x00")
}

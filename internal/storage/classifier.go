// Package storage implements the secure storage adapter: a key-value facade
// that transparently encrypts values belonging to sensitive collections and
// enforces retention-based expiry on them.
package storage

import "strings"

// SensitiveCollections lists the key substrings that classify a storage key
// as PHI/PII-bearing. Classification is configuration, not dynamic state, but
// it is consulted on every read and write; read and write paths must share
// this single rule or mixed plaintext/ciphertext becomes a confidentiality bug.
var SensitiveCollections = []string{
	"patient",
	"medical-record",
	"prescription",
	"lab-result",
	"insurance-claim",
	"message",
	"consent",
}

// Classifier decides whether a storage key's value is subject to encryption
// and retention cleanup.
type Classifier func(key string) bool

// NewClassifier builds a classifier over the given collection substrings.
func NewClassifier(collections []string) Classifier {
	// Copy to insulate from later mutation of the input slice.
	owned := make([]string, len(collections))
	copy(owned, collections)

	return func(key string) bool {
		lowered := strings.ToLower(key)
		for _, collection := range owned {
			if strings.Contains(lowered, collection) {
				return true
			}
		}
		return false
	}
}

// DefaultClassifier matches against SensitiveCollections.
var DefaultClassifier = NewClassifier(SensitiveCollections)

// Package kvstore provides the key-value persistence layer shared by all
// domain modules. The key structure itself encodes the indexes: sessions live
// under "session:<token>", patient records under "patient:<id>", audit events
// under "audit:<timestamp>:<id>" and "audit:user:<userId>:<timestamp>:<id>",
// consents under "consent:<patientId>". The store provides last-write-wins
// semantics with no cross-key atomicity; invariants spanning two keys must
// tolerate partial application.
package kvstore

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
)

// ErrKeyNotFound indicates the requested key does not exist or has expired.
var ErrKeyNotFound = apperrors.Wrap(apperrors.ErrNotFound, "key not found")

// Store defines the key-value operations required by the domain modules.
// Implementations must treat an expired entry as absent on read.
type Store interface {
	// Get retrieves the value stored under key.
	// Returns ErrKeyNotFound if the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A ttl greater than zero schedules expiry;
	// a ttl of zero or less stores the entry without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the entry under key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns all live keys with the given prefix, sorted ascending.
	// An empty prefix returns every live key.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// DeleteExpired removes entries whose TTL elapsed and returns the count.
	// SQL backends expire lazily; this is the reclaim path.
	DeleteExpired(ctx context.Context) (int64, error)

	// Ping verifies backend connectivity within the context deadline.
	Ping(ctx context.Context) error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns a literal key prefix into a LIKE pattern, escaping the
// wildcard characters so Keys honors the plain-prefix contract.
func likePattern(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

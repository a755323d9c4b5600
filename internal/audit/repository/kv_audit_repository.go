// Package repository persists audit events in the key-value store. The key
// structure itself encodes the index: a global chronological namespace and a
// per-user namespace, written independently.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/domain"
	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/kvstore"
)

// KV namespaces. The per-user prefix nests under the global prefix, so global
// scans must skip keys carrying the user prefix.
const (
	globalKeyPrefix  = "audit:"
	userKeyPrefix    = "audit:user:"
	forwardKeyPrefix = "audit-outbox:"
)

// KVAuditRepository stores audit events dual-indexed in the key-value store.
type KVAuditRepository struct {
	store     kvstore.Store
	retention time.Duration
}

// NewKVAuditRepository creates a repository whose entries expire after the
// given retention period.
func NewKVAuditRepository(store kvstore.Store, retention time.Duration) *KVAuditRepository {
	return &KVAuditRepository{
		store:     store,
		retention: retention,
	}
}

// Append writes the event under both indexes with the retention TTL. The two
// writes are not transactional: each index is independently valid, and a
// partial write leaves one retrievable copy rather than corrupting either
// index. Errors from both legs are joined so the caller sees every failure.
func (r *KVAuditRepository) Append(ctx context.Context, event *domain.Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit event")
	}

	globalErr := r.store.Set(ctx, globalKey(event), raw, r.retention)
	var userErr error
	if event.UserID != "" {
		userErr = r.store.Set(ctx, userKey(event), raw, r.retention)
	}
	return errors.Join(globalErr, userErr)
}

// QueryGlobal returns events from the global index matching filter, newest
// first. Sorting is by embedded timestamp, not insertion order: concurrent
// writers may interleave and the key order alone is not authoritative.
func (r *KVAuditRepository) QueryGlobal(ctx context.Context, filter domain.Filter) ([]*domain.Event, error) {
	if filter.UserID != "" {
		return r.QueryByUser(ctx, filter.UserID, filter)
	}

	keys, err := r.store.Keys(ctx, globalKeyPrefix)
	if err != nil {
		return nil, err
	}

	// Drop the per-user index keys nested under the global prefix.
	globalKeys := keys[:0]
	for _, k := range keys {
		if !strings.HasPrefix(k, userKeyPrefix) {
			globalKeys = append(globalKeys, k)
		}
	}
	return r.collect(ctx, globalKeys, filter)
}

// QueryByUser returns events from the per-user index for userID matching
// filter, newest first.
func (r *KVAuditRepository) QueryByUser(ctx context.Context, userID string, filter domain.Filter) ([]*domain.Event, error) {
	keys, err := r.store.Keys(ctx, userKeyPrefix+userID+":")
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, keys, filter)
}

// DeleteOlderThan removes events with a timestamp before cutoff from both
// indexes and returns the number of entries deleted. The store-level TTL is
// the primary retention mechanism; this sweep covers entries written under an
// older, longer retention setting.
func (r *KVAuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	keys, err := r.store.Keys(ctx, globalKeyPrefix)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		event, err := r.load(ctx, key)
		if err != nil {
			continue
		}
		if !event.Timestamp.Before(cutoff) {
			continue
		}
		if err := r.store.Delete(ctx, key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// EnqueueForward stages the event for best-effort delivery to the remote
// audit collector.
func (r *KVAuditRepository) EnqueueForward(ctx context.Context, event *domain.Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit event")
	}
	key := forwardKeyPrefix + timestampSegment(event.Timestamp) + ":" + event.ID.String()
	return r.store.Set(ctx, key, raw, r.retention)
}

// PendingForwards returns up to limit staged events in key order together
// with their keys, oldest first.
func (r *KVAuditRepository) PendingForwards(ctx context.Context, limit int) ([]string, []*domain.Event, error) {
	keys, err := r.store.Keys(ctx, forwardKeyPrefix)
	if err != nil {
		return nil, nil, err
	}
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	pendingKeys := make([]string, 0, len(keys))
	events := make([]*domain.Event, 0, len(keys))
	for _, key := range keys {
		event, err := r.load(ctx, key)
		if err != nil {
			continue
		}
		pendingKeys = append(pendingKeys, key)
		events = append(events, event)
	}
	return pendingKeys, events, nil
}

// MarkForwarded removes a delivered entry from the forward queue.
func (r *KVAuditRepository) MarkForwarded(ctx context.Context, key string) error {
	return r.store.Delete(ctx, key)
}

// collect loads the events behind keys, applies filter and returns them
// newest first, truncated to filter.Limit. Entries that vanished between the
// key scan and the read are skipped: TTL eviction between the two steps is
// routine, not an error.
func (r *KVAuditRepository) collect(ctx context.Context, keys []string, filter domain.Filter) ([]*domain.Event, error) {
	events := make([]*domain.Event, 0, len(keys))
	for _, key := range keys {
		event, err := r.load(ctx, key)
		if err != nil {
			if apperrors.Is(err, kvstore.ErrKeyNotFound) {
				continue
			}
			return nil, err
		}
		if filter.Matches(event) {
			events = append(events, event)
		}
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})

	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[:filter.Limit]
	}
	return events, nil
}

func (r *KVAuditRepository) load(ctx context.Context, key string) (*domain.Event, error) {
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var event domain.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal audit event")
	}
	return &event, nil
}

// globalKey builds the chronological index key. The zero-padded millisecond
// timestamp keeps lexicographic key order aligned with wall-clock order.
func globalKey(event *domain.Event) string {
	return globalKeyPrefix + timestampSegment(event.Timestamp) + ":" + event.ID.String()
}

// userKey builds the per-user index key.
func userKey(event *domain.Event) string {
	return userKeyPrefix + event.UserID + ":" + timestampSegment(event.Timestamp) + ":" + event.ID.String()
}

func timestampSegment(at time.Time) string {
	return fmt.Sprintf("%013d", at.UnixMilli())
}

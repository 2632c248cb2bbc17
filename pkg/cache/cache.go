// Package cache is the durable resolution cache: exercise records keyed by
// upstream identifier plus a mapping from app-supplied names to records
// (including explicit "known not found" entries), so a name is never looked
// up against the upstream twice.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	shared "github.com/jaronwright/workouts-sub003/pkg"
	"github.com/jaronwright/workouts-sub003/pkg/types"
)

// LookupState classifies a cache lookup outcome.
type LookupState int

const (
	// StateUnknown means the name has never been resolved; the caller may
	// go to the upstream.
	StateUnknown LookupState = iota
	// StateHit means a cached record exists for the name.
	StateHit
	// StateKnownMiss means the name was previously confirmed unresolvable;
	// the miss is permanent until manually invalidated.
	StateKnownMiss
)

// LookupResult carries the state and, for hits, the cached record.
type LookupResult struct {
	State  LookupState
	Record *types.ExerciseRecord
}

// Cache wraps the Database with the resolution cache's invariants. It is
// the only component that writes exercise records and name mappings.
type Cache struct {
	db  shared.Database
	now func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(db shared.Database, opts ...Option) *Cache {
	c := &Cache{db: db, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Key folds an app name into the cache's mapping key: lowercased, trimmed,
// internal whitespace collapsed.
func Key(appName string) string {
	return strings.Join(strings.Fields(strings.ToLower(appName)), " ")
}

// Lookup checks the name mapping for appName. On a hit the referenced
// record's access timestamp is refreshed as a side effect.
func (c *Cache) Lookup(ctx context.Context, appName string) (LookupResult, error) {
	key := Key(appName)

	mapping, err := c.db.GetNameMapping(ctx, key)
	if err != nil {
		return LookupResult{}, fmt.Errorf("get name mapping %q: %w", key, err)
	}
	if mapping == nil {
		return LookupResult{State: StateUnknown}, nil
	}
	if !mapping.Resolved() {
		return LookupResult{State: StateKnownMiss}, nil
	}

	record, err := c.db.GetExercise(ctx, mapping.ExerciseID)
	if err != nil {
		return LookupResult{}, fmt.Errorf("get exercise %q: %w", mapping.ExerciseID, err)
	}
	if record == nil {
		// Mapping points at a record that no longer exists. Let the
		// caller re-resolve rather than serving a broken hit.
		slog.Warn("Name mapping references missing exercise", "app_name", key, "exercise_id", mapping.ExerciseID)
		return LookupResult{State: StateUnknown}, nil
	}

	accessed := c.now().UTC()
	if err := c.db.UpdateExercise(ctx, record.ExerciseID, map[string]interface{}{
		"last_accessed_at": accessed,
	}); err != nil {
		// Non-fatal: serving the record matters more than the timestamp
		slog.Warn("Failed to refresh access timestamp", "exercise_id", record.ExerciseID, "error", err)
	} else {
		record.LastAccessedAt = accessed
	}

	return LookupResult{State: StateHit, Record: record}, nil
}

// StoreResolved upserts the record by upstream identifier and writes the
// name mapping for appName. When the record already exists under another
// alias the new name is appended to its alias list instead of creating a
// duplicate. Returns the confidence written: exact when the search phrase
// equals the matched name, fuzzy otherwise.
func (c *Cache) StoreResolved(ctx context.Context, appName string, record *types.ExerciseRecord, phrase string) (types.MatchConfidence, error) {
	key := Key(appName)
	now := c.now().UTC()

	existing, err := c.db.GetExercise(ctx, record.ExerciseID)
	if err != nil {
		return "", fmt.Errorf("get exercise %q: %w", record.ExerciseID, err)
	}

	if existing != nil {
		if !containsAlias(existing.Aliases, key) {
			aliases := append(append([]string{}, existing.Aliases...), key)
			if err := c.db.UpdateExercise(ctx, record.ExerciseID, map[string]interface{}{
				"aliases":          aliases,
				"last_accessed_at": now,
			}); err != nil {
				return "", fmt.Errorf("merge alias into %q: %w", record.ExerciseID, err)
			}
		}
	} else {
		stored := *record
		stored.Aliases = []string{key}
		stored.CreatedAt = now
		stored.LastAccessedAt = now
		if err := c.db.SetExercise(ctx, &stored); err != nil {
			return "", fmt.Errorf("store exercise %q: %w", record.ExerciseID, err)
		}
	}

	confidence := types.ConfidenceFuzzy
	if strings.EqualFold(strings.TrimSpace(phrase), strings.TrimSpace(record.Name)) {
		confidence = types.ConfidenceExact
	}

	if err := c.db.SetNameMapping(ctx, &types.NameMapping{
		AppName:    key,
		ExerciseID: record.ExerciseID,
		Confidence: confidence,
		CreatedAt:  now,
	}); err != nil {
		return "", fmt.Errorf("store name mapping %q: %w", key, err)
	}

	slog.Info("Cached resolved exercise", "app_name", key, "exercise_id", record.ExerciseID, "confidence", confidence)
	return confidence, nil
}

// StoreNotFound records a permanent miss for appName. Future lookups
// short-circuit to known-miss without any remote call.
func (c *Cache) StoreNotFound(ctx context.Context, appName string) error {
	key := Key(appName)
	if err := c.db.SetNameMapping(ctx, &types.NameMapping{
		AppName:    key,
		Confidence: types.ConfidenceAuto,
		CreatedAt:  c.now().UTC(),
	}); err != nil {
		return fmt.Errorf("store not-found mapping %q: %w", key, err)
	}
	slog.Info("Cached permanent miss", "app_name", key)
	return nil
}

func containsAlias(aliases []string, key string) bool {
	for _, a := range aliases {
		if a == key {
			return true
		}
	}
	return false
}

// Package resolver orchestrates the resolution pipeline: cache check,
// quota check, primary search, fallback search, persist.
package resolver

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	shared "github.com/jaronwright/workouts-sub003/pkg"
	"github.com/jaronwright/workouts-sub003/pkg/cache"
	apperrors "github.com/jaronwright/workouts-sub003/pkg/errors"
	infrapubsub "github.com/jaronwright/workouts-sub003/pkg/infrastructure/pubsub"
	"github.com/jaronwright/workouts-sub003/pkg/matcher"
	"github.com/jaronwright/workouts-sub003/pkg/normalizer"
	"github.com/jaronwright/workouts-sub003/pkg/quota"
	"github.com/jaronwright/workouts-sub003/pkg/types"
)

// SearchClient is the remote source boundary. Search returns candidates
// plus the number of HTTP requests actually issued.
type SearchClient interface {
	Search(ctx context.Context, phrase string, limit int) ([]*types.ExerciseRecord, int, error)
}

// exerciseKeywords is ordered: earlier entries win when a name contains
// several (e.g. "squat press" falls back on a press search).
var exerciseKeywords = []string{
	"press", "curl", "row", "squat", "deadlift", "lunge", "raise",
	"extension", "pulldown", "pull up", "fly", "crunch", "dip",
	"shrug", "thrust", "pushdown", "kickback", "plank",
}

var (
	equipmentHintRe = regexp.MustCompile(`\b(barbell|dumbbell|cable|machine)\b`)
	dumbbellAbbrRe  = regexp.MustCompile(`\bdb\b`)
	barbellAbbrRe   = regexp.MustCompile(`\bbb\b`)
)

// Resolver composes the cache, quota ledger, normalizer and remote client
// into one resolution pipeline. The same Resolver runs in the Cloud
// Function and in local tooling; only the injected dependencies differ.
type Resolver struct {
	cache  *cache.Cache
	ledger *quota.Ledger
	norm   *normalizer.Normalizer
	client SearchClient

	pub    shared.Publisher
	topic  string
	source string
	limit  int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPublisher emits an exercise.resolved CloudEvent on the topic whenever
// a fresh record enters the cache.
func WithPublisher(pub shared.Publisher, topic string) Option {
	return func(r *Resolver) {
		r.pub = pub
		r.topic = topic
	}
}

// WithSearchLimit overrides the upstream result-count limit.
func WithSearchLimit(limit int) Option {
	return func(r *Resolver) { r.limit = limit }
}

func New(c *cache.Cache, l *quota.Ledger, n *normalizer.Normalizer, sc SearchClient, opts ...Option) *Resolver {
	r := &Resolver{
		cache:  c,
		ledger: l,
		norm:   n,
		client: sc,
		source: "workouts/resolver",
		limit:  shared.DefaultSearchLimit,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve maps one free-form exercise name to a terminal Resolution.
// Quota exhaustion, confirmed not-found and transport failures are
// outcomes, not errors; the error return covers store failures only.
func (r *Resolver) Resolve(ctx context.Context, name string) (*types.Resolution, error) {
	// CACHE_CHECK
	lookup, err := r.cache.Lookup(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	switch lookup.State {
	case cache.StateHit:
		slog.Info("Cache hit", "name", name, "exercise_id", lookup.Record.ExerciseID)
		return &types.Resolution{Status: types.StatusResolved, Record: lookup.Record, FromCache: true}, nil
	case cache.StateKnownMiss:
		slog.Info("Known miss, skipping remote", "name", name)
		return &types.Resolution{Status: types.StatusNotFound, FromCache: true}, nil
	}

	// QUOTA_CHECK
	ok, err := r.ledger.CanCall(ctx)
	if err != nil {
		return nil, fmt.Errorf("quota check: %w", err)
	}
	if !ok {
		retryAt, err := r.ledger.ResetAt(ctx)
		if err != nil {
			return nil, fmt.Errorf("quota reset horizon: %w", err)
		}
		slog.Warn("Quota exhausted", "name", name, "retry_after", retryAt)
		return &types.Resolution{Status: types.StatusQuotaExhausted, RetryAfter: retryAt}, nil
	}

	// PRIMARY_SEARCH
	phrase := r.norm.Normalize(name)
	candidates, attempts, searchErr := r.client.Search(ctx, phrase, r.limit)
	r.recordCalls(ctx, attempts)

	primaryConfirmed := searchErr == nil
	best := matcher.SelectBest(candidates, phrase)
	matchedPhrase := phrase

	if searchErr != nil && !retryable(searchErr) {
		slog.Error("Primary search failed", "name", name, "phrase", phrase, "error", searchErr)
		return &types.Resolution{Status: types.StatusTransportError}, nil
	}

	// FALLBACK_SEARCH: a broader phrase built from an exercise-type
	// keyword in the original name plus any equipment hint. Runs after a
	// fruitless primary search, and also after a transient primary
	// failure so one rate-limit window doesn't burn the request.
	fallbackConfirmed := true
	if best == nil {
		if fb, found := fallbackPhrase(name); found && fb != phrase {
			slog.Info("Running fallback search", "name", name, "phrase", fb)
			fbCandidates, fbAttempts, fbErr := r.client.Search(ctx, fb, r.limit)
			r.recordCalls(ctx, fbAttempts)
			if fbErr != nil {
				slog.Error("Fallback search failed", "name", name, "phrase", fb, "error", fbErr)
				fallbackConfirmed = false
			} else {
				best = matcher.SelectBest(fbCandidates, fb)
				matchedPhrase = fb
			}
		}
	}

	// PERSIST
	if best != nil {
		confidence, err := r.cache.StoreResolved(ctx, name, best, matchedPhrase)
		if err != nil {
			return nil, fmt.Errorf("persist resolution: %w", err)
		}
		r.publishResolved(ctx, name, best, confidence)
		return &types.Resolution{Status: types.StatusResolved, Record: best}, nil
	}

	// Only a confirmed no-match becomes a permanent miss. Transport
	// failures leave no mapping so a later request can retry.
	if primaryConfirmed && fallbackConfirmed {
		if err := r.cache.StoreNotFound(ctx, name); err != nil {
			return nil, fmt.Errorf("persist miss: %w", err)
		}
		return &types.Resolution{Status: types.StatusNotFound}, nil
	}

	return &types.Resolution{Status: types.StatusTransportError}, nil
}

// recordCalls charges the ledger for HTTP requests actually issued. Ledger
// write failures are logged, not fatal: losing one increment beats failing
// the resolution.
func (r *Resolver) recordCalls(ctx context.Context, attempts int) {
	if attempts == 0 {
		return
	}
	if err := r.ledger.RecordCalls(ctx, attempts); err != nil {
		slog.Warn("Failed to record quota usage", "attempts", attempts, "error", err)
	}
}

func (r *Resolver) publishResolved(ctx context.Context, name string, rec *types.ExerciseRecord, confidence types.MatchConfidence) {
	if r.pub == nil {
		return
	}
	evt, err := infrapubsub.NewCloudEvent(r.source, "com.workouts.exercise.resolved", &types.ExerciseResolvedEvent{
		AppName:    cache.Key(name),
		ExerciseID: rec.ExerciseID,
		Name:       rec.Name,
		Confidence: confidence,
	})
	if err != nil {
		slog.Warn("Failed to build resolved event", "error", err)
		return
	}
	if _, err := r.pub.PublishCloudEvent(ctx, r.topic, evt); err != nil {
		slog.Warn("Failed to publish resolved event", "topic", r.topic, "error", err)
	}
}

func retryable(err error) bool {
	var re *apperrors.ResolutionError
	if stderrors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// fallbackPhrase derives a broader search phrase from the original name:
// the first recognized exercise-type keyword, prefixed with a detected
// equipment hint. Abbreviations are expanded first so "db press" still
// hints dumbbell.
func fallbackPhrase(name string) (string, bool) {
	lowered := strings.ToLower(name)
	lowered = dumbbellAbbrRe.ReplaceAllString(lowered, "dumbbell")
	lowered = barbellAbbrRe.ReplaceAllString(lowered, "barbell")

	var keyword string
	for _, k := range exerciseKeywords {
		if strings.Contains(lowered, k) {
			keyword = k
			break
		}
	}
	if keyword == "" {
		return "", false
	}

	if m := equipmentHintRe.FindString(lowered); m != "" {
		return m + " " + keyword, true
	}
	return keyword, true
}

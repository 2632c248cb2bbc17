package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/jaronwright/workouts-sub003/pkg/cache"
	apperrors "github.com/jaronwright/workouts-sub003/pkg/errors"
	"github.com/jaronwright/workouts-sub003/pkg/exercisedb"
	"github.com/jaronwright/workouts-sub003/pkg/normalizer"
	"github.com/jaronwright/workouts-sub003/pkg/quota"
	"github.com/jaronwright/workouts-sub003/pkg/testing/mocks"
	"github.com/jaronwright/workouts-sub003/pkg/types"
)

type mockSearch struct {
	phrases []string
	search  func(phrase string) ([]*types.ExerciseRecord, int, error)
}

func (m *mockSearch) Search(ctx context.Context, phrase string, limit int) ([]*types.ExerciseRecord, int, error) {
	m.phrases = append(m.phrases, phrase)
	if m.search != nil {
		return m.search(phrase)
	}
	return nil, 1, nil
}

func newTestResolver(db *mocks.MemoryDatabase, sc SearchClient, now time.Time) *Resolver {
	clock := func() time.Time { return now }
	return New(
		cache.New(db, cache.WithClock(clock)),
		quota.NewLedger(db, quota.WithClock(clock)),
		normalizer.New(nil),
		sc,
	)
}

func TestResolve_SynonymPhraseAndCaching(t *testing.T) {
	ctx := context.Background()
	db := mocks.NewMemoryDatabase()
	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)

	sc := &mockSearch{search: func(phrase string) ([]*types.ExerciseRecord, int, error) {
		return []*types.ExerciseRecord{
			{ExerciseID: "ex-42", Name: "dumbbell incline bench press", MediaURL: "https://cdn/ex-42.gif"},
		}, 1, nil
	}}
	r := newTestResolver(db, sc, now)

	res, err := r.Resolve(ctx, "incline db press")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Status != types.StatusResolved || res.Record.ExerciseID != "ex-42" {
		t.Fatalf("unexpected resolution: %+v", res)
	}
	if len(sc.phrases) != 1 || sc.phrases[0] != "dumbbell incline bench press" {
		t.Fatalf("expected one search with the synonym phrase, got %v", sc.phrases)
	}
	if db.TotalCalls() != 1 {
		t.Errorf("expected 1 quota call recorded, got %d", db.TotalCalls())
	}
	// Phrase equals the matched name, so the mapping is exact
	if m := db.Mappings["incline db press"]; m == nil || m.Confidence != types.ConfidenceExact {
		t.Errorf("unexpected mapping: %+v", m)
	}

	// Second resolution: zero remote calls, cached record, refreshed timestamp
	later := now.Add(24 * time.Hour)
	r2 := newTestResolver(db, sc, later)
	res2, err := r2.Resolve(ctx, "Incline DB Press")
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if res2.Status != types.StatusResolved || !res2.FromCache {
		t.Fatalf("expected cached resolution, got %+v", res2)
	}
	if len(sc.phrases) != 1 {
		t.Errorf("expected no further remote calls, got %v", sc.phrases)
	}
	if !res2.Record.LastAccessedAt.Equal(later) {
		t.Errorf("expected refreshed access timestamp %v, got %v", later, res2.Record.LastAccessedAt)
	}
}

func TestResolve_PullUpsSynonym(t *testing.T) {
	ctx := context.Background()
	db := mocks.NewMemoryDatabase()
	sc := &mockSearch{search: func(phrase string) ([]*types.ExerciseRecord, int, error) {
		return []*types.ExerciseRecord{{ExerciseID: "ex-1", Name: "pull up"}}, 1, nil
	}}
	r := newTestResolver(db, sc, time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC))

	if _, err := r.Resolve(ctx, "pull-ups"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(sc.phrases) != 1 || sc.phrases[0] != "pull up" {
		t.Fatalf("expected search phrase 'pull up', got %v", sc.phrases)
	}
}

func TestResolve_RateLimitedPrimaryFallsBack(t *testing.T) {
	// Two 429s exhaust the primary search's retry budget; the fallback
	// search then succeeds. Three HTTP calls, three quota increments,
	// result cached.
	ctx := context.Background()
	db := mocks.NewMemoryDatabase()

	httpCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httpCalls++
		if httpCalls <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"success":true,"data":[{"exerciseId":"ex-7","name":"cable press","gifUrl":"https://cdn/ex-7.gif"}]}`))
	}))
	defer srv.Close()

	client := exercisedb.NewClient(exercisedb.Config{BaseURL: srv.URL, Sleep: func(time.Duration) {}})
	r := newTestResolver(db, client, time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC))

	res, err := r.Resolve(ctx, "mystery cable press combo")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Status != types.StatusResolved || res.Record.ExerciseID != "ex-7" {
		t.Fatalf("expected fallback resolution, got %+v", res)
	}
	if httpCalls != 3 {
		t.Errorf("expected exactly 3 HTTP calls, got %d", httpCalls)
	}
	if db.TotalCalls() != 3 {
		t.Errorf("expected 3 quota calls recorded, got %d", db.TotalCalls())
	}
	if db.Exercises["ex-7"] == nil {
		t.Error("expected fallback result cached")
	}
}

func TestResolve_EmptyBothSearchesCachesPermanentMiss(t *testing.T) {
	ctx := context.Background()
	db := mocks.NewMemoryDatabase()
	sc := &mockSearch{search: func(phrase string) ([]*types.ExerciseRecord, int, error) {
		return nil, 1, nil
	}}
	r := newTestResolver(db, sc, time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC))

	res, err := r.Resolve(ctx, "barbell flooglehorn press")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Status != types.StatusNotFound {
		t.Fatalf("expected not-found, got %+v", res)
	}
	// Primary phrase plus the "barbell press" fallback
	if len(sc.phrases) != 2 || sc.phrases[1] != "barbell press" {
		t.Fatalf("expected primary + fallback searches, got %v", sc.phrases)
	}
	if db.TotalCalls() != 2 {
		t.Errorf("expected exactly 2 quota calls, got %d", db.TotalCalls())
	}

	// The miss is permanent: no further remote calls for the same name
	res2, err := r.Resolve(ctx, "Barbell  Flooglehorn Press")
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if res2.Status != types.StatusNotFound || !res2.FromCache {
		t.Fatalf("expected cached miss, got %+v", res2)
	}
	if len(sc.phrases) != 2 {
		t.Errorf("known miss must not hit the remote source again, got %v", sc.phrases)
	}
}

func TestResolve_NoFallbackWithoutKeyword(t *testing.T) {
	ctx := context.Background()
	db := mocks.NewMemoryDatabase()
	sc := &mockSearch{search: func(phrase string) ([]*types.ExerciseRecord, int, error) {
		return nil, 1, nil
	}}
	r := newTestResolver(db, sc, time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC))

	res, err := r.Resolve(ctx, "mystery movement")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Status != types.StatusNotFound {
		t.Fatalf("expected not-found, got %+v", res)
	}
	if len(sc.phrases) != 1 {
		t.Errorf("expected a single search without fallback, got %v", sc.phrases)
	}
}

func TestResolve_QuotaExhausted(t *testing.T) {
	ctx := context.Background()
	db := mocks.NewMemoryDatabase()
	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	db.Usage["2026-08-15"] = &types.UsageCounter{Day: "2026-08-15", CallsMade: 5}

	sc := &mockSearch{}
	r := New(
		cache.New(db, cache.WithClock(clock)),
		quota.NewLedger(db, quota.WithClock(clock), quota.WithCeilings(5, 100)),
		normalizer.New(nil),
		sc,
	)

	res, err := r.Resolve(ctx, "bench press")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Status != types.StatusQuotaExhausted {
		t.Fatalf("expected quota exhausted, got %+v", res)
	}
	want := time.Date(2026, 8, 16, 0, 0, 0, 0, time.UTC)
	if !res.RetryAfter.Equal(want) {
		t.Errorf("expected retry after %v, got %v", want, res.RetryAfter)
	}
	if len(sc.phrases) != 0 {
		t.Errorf("quota exhaustion must not reach the remote source, got %v", sc.phrases)
	}
}

func TestResolve_TransportErrorDoesNotPoisonCache(t *testing.T) {
	ctx := context.Background()
	db := mocks.NewMemoryDatabase()
	sc := &mockSearch{search: func(phrase string) ([]*types.ExerciseRecord, int, error) {
		return nil, 1, apperrors.ErrUpstreamError.WithMessage("upstream returned status 500")
	}}
	r := newTestResolver(db, sc, time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC))

	res, err := r.Resolve(ctx, "barbell squat")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Status != types.StatusTransportError {
		t.Fatalf("expected transport error outcome, got %+v", res)
	}
	if len(db.Mappings) != 0 {
		t.Fatalf("transport errors must not write mappings, got %v", db.Mappings)
	}

	// The attempt still consumed quota, and the next request retries
	if db.TotalCalls() != 1 {
		t.Errorf("expected 1 quota call recorded, got %d", db.TotalCalls())
	}
	if _, err := r.Resolve(ctx, "barbell squat"); err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if len(sc.phrases) != 2 {
		t.Errorf("expected the remote source to be retried, got %v", sc.phrases)
	}
}

func TestResolve_PublishesEventOnFreshResolution(t *testing.T) {
	ctx := context.Background()
	db := mocks.NewMemoryDatabase()
	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	published := 0
	var topic, eventType string
	pub := &mocks.MockPublisher{
		PublishCloudEventFunc: func(ctx context.Context, tp string, e event.Event) (string, error) {
			published++
			topic = tp
			eventType = e.Type()
			return "msg-1", nil
		},
	}

	sc := &mockSearch{search: func(phrase string) ([]*types.ExerciseRecord, int, error) {
		return []*types.ExerciseRecord{{ExerciseID: "ex-1", Name: "pull up"}}, 1, nil
	}}
	r := New(
		cache.New(db, cache.WithClock(clock)),
		quota.NewLedger(db, quota.WithClock(clock)),
		normalizer.New(nil),
		sc,
		WithPublisher(pub, "topic-exercise-resolved"),
	)

	if _, err := r.Resolve(ctx, "pull-ups"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if published != 1 || topic != "topic-exercise-resolved" {
		t.Errorf("expected one publish on the resolved topic, got %d/%s", published, topic)
	}
	if eventType != "com.workouts.exercise.resolved" {
		t.Errorf("unexpected event type %s", eventType)
	}

	// Cache hits do not republish
	if _, err := r.Resolve(ctx, "pull-ups"); err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if published != 1 {
		t.Errorf("expected no publish on cache hit, got %d", published)
	}
}

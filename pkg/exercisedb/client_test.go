package exercisedb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "github.com/jaronwright/workouts-sub003/pkg/errors"
)

func noSleep(time.Duration) {}

func TestSearch_EnvelopeShape(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":[
			{"exerciseId":"ex-1","name":"dumbbell bench press","gifUrl":"https://cdn/ex-1.gif",
			 "bodyParts":["chest"],"equipments":["dumbbell"],"targetMuscles":["pectorals"],
			 "secondaryMuscles":["triceps"],"instructions":["Step 1","Step 2"]}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Sleep: noSleep})
	recs, attempts, err := c.Search(context.Background(), "bench press", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
	if gotQuery != "search=bench+press&limit=10" {
		t.Errorf("unexpected query: %s", gotQuery)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	r := recs[0]
	if r.ExerciseID != "ex-1" || r.Name != "dumbbell bench press" {
		t.Errorf("record mismatch: %+v", r)
	}
	if len(r.TargetMuscles) != 1 || r.TargetMuscles[0] != "pectorals" {
		t.Errorf("target muscles mismatch: %v", r.TargetMuscles)
	}
	if len(r.Instructions) != 2 {
		t.Errorf("instructions mismatch: %v", r.Instructions)
	}
}

func TestSearch_LegacyFlatShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":"0025","name":"barbell squat","gifUrl":"https://cdn/0025.gif",
			 "bodyPart":"upper legs","equipment":"barbell","target":"quads",
			 "secondaryMuscles":["glutes"],"instructions":["Squat down"]}
		]`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Sleep: noSleep})
	recs, _, err := c.Search(context.Background(), "squat", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	r := recs[0]
	if r.ExerciseID != "0025" {
		t.Errorf("expected legacy id mapped, got %s", r.ExerciseID)
	}
	if len(r.BodyParts) != 1 || r.BodyParts[0] != "upper legs" {
		t.Errorf("singular bodyPart not normalized: %v", r.BodyParts)
	}
	if len(r.Equipment) != 1 || r.Equipment[0] != "barbell" {
		t.Errorf("singular equipment not normalized: %v", r.Equipment)
	}
}

func TestSearch_EmptyResultIsNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Sleep: noSleep})
	recs, attempts, err := c.Search(context.Background(), "nosuchthing", 10)
	if err != nil {
		t.Fatalf("empty result should not error: %v", err)
	}
	if attempts != 1 || len(recs) != 0 {
		t.Errorf("expected 1 attempt and 0 records, got %d/%d", attempts, len(recs))
	}
}

func TestSearch_RateLimitRetriesOnce(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"success":true,"data":[{"exerciseId":"ex-9","name":"cable row"}]}`))
	}))
	defer srv.Close()

	slept := 0
	c := NewClient(Config{BaseURL: srv.URL, Backoff: 100 * time.Millisecond, Sleep: func(time.Duration) { slept++ }})
	recs, attempts, err := c.Search(context.Background(), "cable row", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if calls != 2 || attempts != 2 {
		t.Errorf("expected 2 calls/attempts, got %d/%d", calls, attempts)
	}
	if slept != 1 {
		t.Errorf("expected exactly one backoff sleep, got %d", slept)
	}
	if len(recs) != 1 || recs[0].Name != "cable row" {
		t.Errorf("unexpected result: %v", recs)
	}
}

func TestSearch_RepeatedRateLimitSurfaces(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Sleep: noSleep})
	_, attempts, err := c.Search(context.Background(), "bench press", 10)
	if calls != 2 || attempts != 2 {
		t.Errorf("expected exactly 2 calls/attempts, got %d/%d", calls, attempts)
	}
	if !errors.Is(err, apperrors.ErrUpstreamRateLimited) {
		t.Fatalf("expected rate-limited error, got %v", err)
	}
	var re *apperrors.ResolutionError
	if !errors.As(err, &re) || !re.Retryable {
		t.Errorf("rate-limited error should be retryable: %v", err)
	}
}

func TestSearch_ServerErrorIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Sleep: noSleep})
	_, attempts, err := c.Search(context.Background(), "bench press", 10)
	if calls != 1 || attempts != 1 {
		t.Errorf("expected a single attempt, got %d/%d", calls, attempts)
	}
	if !errors.Is(err, apperrors.ErrUpstreamError) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestSearch_APIKeyHeader(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-rapidapi-key")
		w.Write([]byte(`{"success":true,"data":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "secret-key", Sleep: noSleep})
	if _, _, err := c.Search(context.Background(), "anything", 1); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if gotKey != "secret-key" {
		t.Errorf("expected api key header, got %q", gotKey)
	}
}

// Package exercisedb talks to the third-party exercise database's search
// endpoint and maps its responses into our canonical record shape.
package exercisedb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	shared "github.com/jaronwright/workouts-sub003/pkg"
	apperrors "github.com/jaronwright/workouts-sub003/pkg/errors"
	"github.com/jaronwright/workouts-sub003/pkg/types"
)

// Config holds the client's construction parameters. Zero values fall back
// to sensible defaults; Sleep exists so tests can retry without waiting.
type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Backoff    time.Duration
	Sleep      func(time.Duration)
}

// Client performs search calls against the upstream exercise database.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	backoff time.Duration
	sleep   func(time.Duration)
}

func NewClient(cfg Config) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpc:   cfg.HTTPClient,
		backoff: cfg.Backoff,
		sleep:   cfg.Sleep,
	}
	if c.baseURL == "" {
		c.baseURL = shared.DefaultExerciseDBBaseURL
	}
	if c.httpc == nil {
		c.httpc = &http.Client{Timeout: 15 * time.Second}
	}
	if c.backoff == 0 {
		c.backoff = shared.RateLimitBackoff
	}
	if c.sleep == nil {
		c.sleep = time.Sleep
	}
	return c
}

// Search queries the upstream for candidates matching the phrase. It returns
// the candidates plus the number of HTTP requests actually issued, which the
// caller must record against the quota ledger: a 429 retry costs a second
// call even when the logical search fails.
//
// An empty candidate list is a valid, non-error outcome. A 429 is retried
// exactly once after a fixed backoff; repeated 429s surface as a retryable
// rate-limited error.
func (c *Client) Search(ctx context.Context, phrase string, limit int) ([]*types.ExerciseRecord, int, error) {
	endpoint := fmt.Sprintf("%s/exercises/search?search=%s&limit=%s",
		c.baseURL, url.QueryEscape(phrase), strconv.Itoa(limit))

	attempts := 0
	for {
		attempts++

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, attempts - 1, apperrors.ErrUpstreamError.WithCause(err)
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("x-rapidapi-key", c.apiKey)
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			if attempts == 1 {
				slog.Warn("Upstream request failed, retrying once", "phrase", phrase, "error", err)
				c.sleep(c.backoff)
				continue
			}
			return nil, attempts, apperrors.ErrUpstreamUnavailable.WithCause(err)
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempts == 1 {
				slog.Warn("Upstream rate limited, backing off", "phrase", phrase, "backoff", c.backoff)
				c.sleep(c.backoff)
				continue
			}
			return nil, attempts, apperrors.ErrUpstreamRateLimited.WithMetadata("phrase", phrase)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, attempts, apperrors.ErrUpstreamError.
				WithMessage(fmt.Sprintf("upstream returned status %d", resp.StatusCode)).
				WithMetadata("phrase", phrase)
		}

		if readErr != nil {
			return nil, attempts, apperrors.ErrUpstreamBadResponse.WithCause(readErr)
		}

		records, err := decodeSearchResponse(body)
		if err != nil {
			return nil, attempts, err
		}
		slog.Info("Upstream search complete", "phrase", phrase, "candidates", len(records), "attempts", attempts)
		return records, attempts, nil
	}
}

// upstreamExercise covers both response generations in one struct: the
// current API wraps results in {"success":..,"data":[..]} with plural array
// fields, while the legacy API returns a bare array with singular fields.
type upstreamExercise struct {
	ExerciseID string `json:"exerciseId"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	GifURL     string `json:"gifUrl"`

	BodyParts     []string `json:"bodyParts"`
	Equipments    []string `json:"equipments"`
	TargetMuscles []string `json:"targetMuscles"`

	BodyPart  string `json:"bodyPart"`
	Equipment string `json:"equipment"`
	Target    string `json:"target"`

	SecondaryMuscles []string `json:"secondaryMuscles"`
	Instructions     []string `json:"instructions"`
}

type searchEnvelope struct {
	Success bool               `json:"success"`
	Data    []upstreamExercise `json:"data"`
}

func decodeSearchResponse(body []byte) ([]*types.ExerciseRecord, error) {
	trimmed := strings.TrimSpace(string(body))

	var raw []upstreamExercise
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, apperrors.ErrUpstreamBadResponse.WithCause(err)
		}
	} else {
		var env searchEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, apperrors.ErrUpstreamBadResponse.WithCause(err)
		}
		raw = env.Data
	}

	records := make([]*types.ExerciseRecord, 0, len(raw))
	for _, u := range raw {
		rec := mapExercise(u)
		if rec.ExerciseID == "" || rec.Name == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func mapExercise(u upstreamExercise) *types.ExerciseRecord {
	rec := &types.ExerciseRecord{
		ExerciseID:       u.ExerciseID,
		Name:             u.Name,
		MediaURL:         u.GifURL,
		BodyParts:        u.BodyParts,
		Equipment:        u.Equipments,
		TargetMuscles:    u.TargetMuscles,
		SecondaryMuscles: u.SecondaryMuscles,
		Instructions:     u.Instructions,
	}
	if rec.ExerciseID == "" {
		rec.ExerciseID = u.ID
	}
	// Legacy shape uses singular fields
	if len(rec.BodyParts) == 0 && u.BodyPart != "" {
		rec.BodyParts = []string{u.BodyPart}
	}
	if len(rec.Equipment) == 0 && u.Equipment != "" {
		rec.Equipment = []string{u.Equipment}
	}
	if len(rec.TargetMuscles) == 0 && u.Target != "" {
		rec.TargetMuscles = []string{u.Target}
	}
	return rec
}

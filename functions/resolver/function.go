// Package resolver exposes the exercise resolution pipeline as a Cloud
// Function, triggered by Pub/Sub and directly over HTTP.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/cloudevents/sdk-go/v2/event"

	shared "github.com/jaronwright/workouts-sub003/pkg"
	"github.com/jaronwright/workouts-sub003/pkg/bootstrap"
	"github.com/jaronwright/workouts-sub003/pkg/cache"
	"github.com/jaronwright/workouts-sub003/pkg/exercisedb"
	"github.com/jaronwright/workouts-sub003/pkg/framework"
	"github.com/jaronwright/workouts-sub003/pkg/media"
	"github.com/jaronwright/workouts-sub003/pkg/normalizer"
	"github.com/jaronwright/workouts-sub003/pkg/quota"
	"github.com/jaronwright/workouts-sub003/pkg/resolver"
	"github.com/jaronwright/workouts-sub003/pkg/types"
)

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.CloudEvent("ResolveExercise", ResolveExercise)
	functions.HTTP("ResolveExerciseHTTP", ResolveExerciseHTTP)
}

func initService(ctx context.Context) (*bootstrap.Service, error) {
	if svc != nil {
		return svc, nil
	}
	svcOnce.Do(func() {
		svc, svcErr = bootstrap.NewService(ctx)
		if svcErr != nil {
			slog.Error("Failed to initialize service", "error", svcErr)
		}
	})
	return svc, svcErr
}

// buildResolver wires the pipeline from the service's dependencies.
func buildResolver(ctx context.Context, svc *bootstrap.Service) (*resolver.Resolver, *media.Mirrorer, error) {
	apiKey, err := svc.APIKey(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("api key: %w", err)
	}

	client := exercisedb.NewClient(exercisedb.Config{
		BaseURL: svc.Config.ExerciseDBBase,
		APIKey:  apiKey,
	})

	r := resolver.New(
		cache.New(svc.DB),
		quota.NewLedger(svc.DB),
		normalizer.New(nil),
		client,
		resolver.WithPublisher(svc.Pub, shared.TopicExerciseResolved),
	)

	return r, media.NewMirrorer(svc.Store, svc.DB, svc.Config.GCSMediaBucket), nil
}

// ResolveExercise is the Pub/Sub entry point
func ResolveExercise(ctx context.Context, e event.Event) error {
	svc, err := initService(ctx)
	if err != nil {
		return fmt.Errorf("service init failed: %v", err)
	}
	return framework.WrapHandler("resolver", svc, resolveHandler)(ctx, e)
}

// resolveHandler contains the business logic
func resolveHandler(ctx context.Context, e event.Event, svc *bootstrap.Service, logger *slog.Logger, execID string) (interface{}, error) {
	var msg types.PubSubMessage
	if err := e.DataAs(&msg); err != nil {
		return nil, fmt.Errorf("event.DataAs: %v", err)
	}

	var req types.ResolveRequest
	if err := json.Unmarshal(msg.Message.Data, &req); err != nil {
		return nil, fmt.Errorf("json unmarshal: %v", err)
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("resolve request has empty name")
	}

	logger.Info("Resolving exercise", "name", req.Name, "request_id", req.RequestID)

	res, mirrorer, err := resolveOne(ctx, svc, req.Name)
	if err != nil {
		return nil, err
	}

	// Mirror media out of band of the resolution outcome; a mirror
	// failure never fails the function.
	if res.Status == types.StatusResolved && !res.FromCache {
		if _, err := mirrorer.Mirror(ctx, res.Record); err != nil {
			logger.Warn("Media mirror failed", "exercise_id", res.Record.ExerciseID, "error", err)
		}
	}

	logger.Info("Resolution complete", "name", req.Name, "status", res.Status, "from_cache", res.FromCache)
	return res, nil
}

func resolveOne(ctx context.Context, svc *bootstrap.Service, name string) (*types.Resolution, *media.Mirrorer, error) {
	r, mirrorer, err := buildResolver(ctx, svc)
	if err != nil {
		return nil, nil, err
	}
	res, err := r.Resolve(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return res, mirrorer, nil
}

// ResolveExerciseHTTP is the HTTP entry point
func ResolveExerciseHTTP(w http.ResponseWriter, r *http.Request) {
	svc, err := initService(r.Context())
	if err != nil {
		http.Error(w, "service init failed", http.StatusInternalServerError)
		return
	}
	framework.WrapHTTPHandler("resolver-http", svc, resolveHTTPHandler)(w, r)
}

func resolveHTTPHandler(w http.ResponseWriter, r *http.Request, svc *bootstrap.Service, logger *slog.Logger, execID string) (interface{}, error) {
	name, err := requestName(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, err
	}

	res, mirrorer, err := resolveOne(r.Context(), svc, name)
	if err != nil {
		http.Error(w, "resolution failed", http.StatusInternalServerError)
		return nil, err
	}

	if res.Status == types.StatusResolved && !res.FromCache {
		if _, err := mirrorer.Mirror(r.Context(), res.Record); err != nil {
			logger.Warn("Media mirror failed", "exercise_id", res.Record.ExerciseID, "error", err)
		}
	}

	writeResolution(w, res)
	return res, nil
}

func requestName(r *http.Request) (string, error) {
	switch r.Method {
	case http.MethodGet:
		name := strings.TrimSpace(r.URL.Query().Get("name"))
		if name == "" {
			return "", fmt.Errorf("missing name query parameter")
		}
		return name, nil
	case http.MethodPost:
		var req types.ResolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", fmt.Errorf("invalid request body: %v", err)
		}
		if strings.TrimSpace(req.Name) == "" {
			return "", fmt.Errorf("missing name in request body")
		}
		return strings.TrimSpace(req.Name), nil
	default:
		return "", fmt.Errorf("method %s not allowed", r.Method)
	}
}

func writeResolution(w http.ResponseWriter, res *types.Resolution) {
	w.Header().Set("Content-Type", "application/json")
	switch res.Status {
	case types.StatusResolved:
		w.WriteHeader(http.StatusOK)
	case types.StatusNotFound:
		w.WriteHeader(http.StatusNotFound)
	case types.StatusQuotaExhausted:
		w.Header().Set("Retry-After", res.RetryAfter.UTC().Format(time.RFC1123))
		w.WriteHeader(http.StatusTooManyRequests)
	default:
		w.WriteHeader(http.StatusBadGateway)
	}
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to encode resolution response", "error", err)
	}
}

package shared

import (
	"context"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/jaronwright/workouts-sub003/pkg/types"
)

// --- Persistence Interfaces ---

// Database is the durable store behind the resolution cache, the quota
// ledger, and execution logging. Get methods return (nil, nil) when the
// requested document does not exist, so callers stay agnostic of the
// backing store's not-found signalling.
type Database interface {
	// Exercise cache records
	GetExercise(ctx context.Context, id string) (*types.ExerciseRecord, error)
	SetExercise(ctx context.Context, record *types.ExerciseRecord) error
	UpdateExercise(ctx context.Context, id string, data map[string]interface{}) error

	// Name-to-record mappings (keyed by normalized app name)
	GetNameMapping(ctx context.Context, appName string) (*types.NameMapping, error)
	SetNameMapping(ctx context.Context, mapping *types.NameMapping) error

	// Per-day API usage counters (keyed by YYYY-MM-DD)
	GetUsage(ctx context.Context, day string) (*types.UsageCounter, error)
	IncrementUsage(ctx context.Context, day string, n int) error
	ListUsageSince(ctx context.Context, sinceDay string) ([]*types.UsageCounter, error)

	// Execution log
	SetExecution(ctx context.Context, record *types.ExecutionRecord) error
	UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error
}

// --- Messaging Interfaces ---

type Publisher interface {
	PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error)
}

// --- Storage Interfaces ---

type BlobStore interface {
	Write(ctx context.Context, bucket, object string, data []byte) error
	Read(ctx context.Context, bucket, object string) ([]byte, error)
}

// --- Secrets Interface ---

type SecretStore interface {
	GetSecret(ctx context.Context, projectID, name string) (string, error)
}

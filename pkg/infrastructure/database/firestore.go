package database

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	shared "github.com/jaronwright/workouts-sub003/pkg"
	"github.com/jaronwright/workouts-sub003/pkg/types"
)

// FirestoreAdapter provides database operations using Firestore.
// Documents are keyed by upstream exercise ID, normalized app name, and
// usage day respectively, matching the cache's uniqueness invariants.
type FirestoreAdapter struct {
	Client *firestore.Client
}

func NewFirestoreAdapter(client *firestore.Client) *FirestoreAdapter {
	return &FirestoreAdapter{Client: client}
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// --- Exercise cache records ---

func (a *FirestoreAdapter) GetExercise(ctx context.Context, id string) (*types.ExerciseRecord, error) {
	snap, err := a.Client.Collection(shared.CollectionExercises).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var rec types.ExerciseRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, err
	}
	// The doc key is authoritative
	rec.ExerciseID = id
	return &rec, nil
}

func (a *FirestoreAdapter) SetExercise(ctx context.Context, record *types.ExerciseRecord) error {
	_, err := a.Client.Collection(shared.CollectionExercises).Doc(record.ExerciseID).Set(ctx, record)
	return err
}

func (a *FirestoreAdapter) UpdateExercise(ctx context.Context, id string, data map[string]interface{}) error {
	updates := make([]firestore.Update, 0, len(data))
	for k, v := range data {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	_, err := a.Client.Collection(shared.CollectionExercises).Doc(id).Update(ctx, updates)
	return err
}

// --- Name mappings ---

func (a *FirestoreAdapter) GetNameMapping(ctx context.Context, appName string) (*types.NameMapping, error) {
	snap, err := a.Client.Collection(shared.CollectionNameMappings).Doc(appName).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var m types.NameMapping
	if err := snap.DataTo(&m); err != nil {
		return nil, err
	}
	m.AppName = appName
	return &m, nil
}

func (a *FirestoreAdapter) SetNameMapping(ctx context.Context, mapping *types.NameMapping) error {
	_, err := a.Client.Collection(shared.CollectionNameMappings).Doc(mapping.AppName).Set(ctx, mapping)
	return err
}

// --- Usage counters ---

func (a *FirestoreAdapter) GetUsage(ctx context.Context, day string) (*types.UsageCounter, error) {
	snap, err := a.Client.Collection(shared.CollectionUsage).Doc(day).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var u types.UsageCounter
	if err := snap.DataTo(&u); err != nil {
		return nil, err
	}
	u.Day = day
	return &u, nil
}

// IncrementUsage bumps the day's counter atomically, creating the document
// lazily. The transform avoids the read-then-write race that under-counts
// under concurrent function instances.
func (a *FirestoreAdapter) IncrementUsage(ctx context.Context, day string, n int) error {
	_, err := a.Client.Collection(shared.CollectionUsage).Doc(day).Set(ctx, map[string]interface{}{
		"day":        day,
		"calls_made": firestore.Increment(n),
		"updated_at": firestore.ServerTimestamp,
	}, firestore.MergeAll)
	return err
}

func (a *FirestoreAdapter) ListUsageSince(ctx context.Context, sinceDay string) ([]*types.UsageCounter, error) {
	iter := a.Client.Collection(shared.CollectionUsage).Where("day", ">=", sinceDay).Documents(ctx)
	docs, err := iter.GetAll()
	if err != nil {
		return nil, err
	}
	counters := make([]*types.UsageCounter, 0, len(docs))
	for _, d := range docs {
		var u types.UsageCounter
		if err := d.DataTo(&u); err != nil {
			return nil, err
		}
		u.Day = d.Ref.ID
		counters = append(counters, &u)
	}
	return counters, nil
}

// --- Execution log ---

func (a *FirestoreAdapter) SetExecution(ctx context.Context, record *types.ExecutionRecord) error {
	_, err := a.Client.Collection(shared.CollectionExecutions).Doc(record.ExecutionID).Set(ctx, record)
	return err
}

func (a *FirestoreAdapter) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	_, err := a.Client.Collection(shared.CollectionExecutions).Doc(id).Set(ctx, data, firestore.MergeAll)
	return err
}

package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/jaronwright/workouts-sub003/pkg/types"
)

var (
	bucketExercises  = []byte("exercises")
	bucketMappings   = []byte("name_mappings")
	bucketUsage      = []byte("usage")
	bucketExecutions = []byte("executions")
)

// BoltAdapter provides the same database operations backed by a local
// bbolt file. Used by the CLI so lookups work without a Firestore
// project. Values are JSON, keys match the Firestore document IDs, so
// usage keys (YYYY-MM-DD) sort chronologically.
type BoltAdapter struct {
	db *bolt.DB
}

func NewBoltAdapter(path string) (*BoltAdapter, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketExercises, bucketMappings, bucketUsage, bucketExecutions} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltAdapter{db: db}, nil
}

func (a *BoltAdapter) Close() error {
	return a.db.Close()
}

func (a *BoltAdapter) put(bucket []byte, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", bucket, key, err)
	}
	return a.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (a *BoltAdapter) get(bucket []byte, key string, v interface{}) (bool, error) {
	var data []byte
	err := a.db.View(func(tx *bolt.Tx) error {
		if raw := tx.Bucket(bucket).Get([]byte(key)); raw != nil {
			data = append([]byte(nil), raw...)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal %s/%s: %w", bucket, key, err)
	}
	return true, nil
}

func (a *BoltAdapter) GetExercise(ctx context.Context, id string) (*types.ExerciseRecord, error) {
	var rec types.ExerciseRecord
	found, err := a.get(bucketExercises, id, &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

func (a *BoltAdapter) SetExercise(ctx context.Context, record *types.ExerciseRecord) error {
	return a.put(bucketExercises, record.ExerciseID, record)
}

func (a *BoltAdapter) UpdateExercise(ctx context.Context, id string, data map[string]interface{}) error {
	rec, err := a.GetExercise(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("exercise %s not found", id)
	}
	for k, v := range data {
		switch k {
		case "last_accessed_at":
			if t, ok := v.(time.Time); ok {
				rec.LastAccessedAt = t
			}
		case "aliases":
			if aliases, ok := v.([]string); ok {
				rec.Aliases = aliases
			}
		case "mirrored_media_uri":
			if uri, ok := v.(string); ok {
				rec.MirroredMediaURI = uri
			}
		}
	}
	return a.put(bucketExercises, id, rec)
}

func (a *BoltAdapter) GetNameMapping(ctx context.Context, appName string) (*types.NameMapping, error) {
	var m types.NameMapping
	found, err := a.get(bucketMappings, appName, &m)
	if err != nil || !found {
		return nil, err
	}
	return &m, nil
}

func (a *BoltAdapter) SetNameMapping(ctx context.Context, mapping *types.NameMapping) error {
	return a.put(bucketMappings, mapping.AppName, mapping)
}

func (a *BoltAdapter) GetUsage(ctx context.Context, day string) (*types.UsageCounter, error) {
	var u types.UsageCounter
	found, err := a.get(bucketUsage, day, &u)
	if err != nil || !found {
		return nil, err
	}
	return &u, nil
}

// IncrementUsage runs read-modify-write inside one update transaction,
// which bbolt serializes, so concurrent increments cannot be lost.
func (a *BoltAdapter) IncrementUsage(ctx context.Context, day string, n int) error {
	return a.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsage)
		counter := types.UsageCounter{Day: day}
		if raw := b.Get([]byte(day)); raw != nil {
			if err := json.Unmarshal(raw, &counter); err != nil {
				return fmt.Errorf("unmarshal usage %s: %w", day, err)
			}
		}
		counter.CallsMade += n
		counter.UpdatedAt = time.Now().UTC()
		data, err := json.Marshal(&counter)
		if err != nil {
			return err
		}
		return b.Put([]byte(day), data)
	})
}

func (a *BoltAdapter) ListUsageSince(ctx context.Context, sinceDay string) ([]*types.UsageCounter, error) {
	var counters []*types.UsageCounter
	err := a.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketUsage).Cursor()
		min := []byte(sinceDay)
		for k, v := c.Seek(min); k != nil && bytes.Compare(k, min) >= 0; k, v = c.Next() {
			var u types.UsageCounter
			if err := json.Unmarshal(v, &u); err != nil {
				return fmt.Errorf("unmarshal usage %s: %w", k, err)
			}
			counters = append(counters, &u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counters, nil
}

func (a *BoltAdapter) SetExecution(ctx context.Context, record *types.ExecutionRecord) error {
	return a.put(bucketExecutions, record.ExecutionID, record)
}

func (a *BoltAdapter) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	return a.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketExecutions)
		existing := map[string]interface{}{}
		if raw := b.Get([]byte(id)); raw != nil {
			if err := json.Unmarshal(raw, &existing); err != nil {
				return fmt.Errorf("unmarshal execution %s: %w", id, err)
			}
		}
		for k, v := range data {
			existing[k] = v
		}
		merged, err := json.Marshal(existing)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), merged)
	})
}

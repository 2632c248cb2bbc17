package mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/jaronwright/workouts-sub003/pkg/types"
)

// --- Mock Database ---
type MockDatabase struct {
	GetExerciseFunc    func(ctx context.Context, id string) (*types.ExerciseRecord, error)
	SetExerciseFunc    func(ctx context.Context, record *types.ExerciseRecord) error
	UpdateExerciseFunc func(ctx context.Context, id string, data map[string]interface{}) error

	GetNameMappingFunc func(ctx context.Context, appName string) (*types.NameMapping, error)
	SetNameMappingFunc func(ctx context.Context, mapping *types.NameMapping) error

	GetUsageFunc       func(ctx context.Context, day string) (*types.UsageCounter, error)
	IncrementUsageFunc func(ctx context.Context, day string, n int) error
	ListUsageSinceFunc func(ctx context.Context, sinceDay string) ([]*types.UsageCounter, error)

	SetExecutionFunc    func(ctx context.Context, record *types.ExecutionRecord) error
	UpdateExecutionFunc func(ctx context.Context, id string, data map[string]interface{}) error
}

func (m *MockDatabase) GetExercise(ctx context.Context, id string) (*types.ExerciseRecord, error) {
	if m.GetExerciseFunc != nil {
		return m.GetExerciseFunc(ctx, id)
	}
	return nil, nil
}
func (m *MockDatabase) SetExercise(ctx context.Context, record *types.ExerciseRecord) error {
	if m.SetExerciseFunc != nil {
		return m.SetExerciseFunc(ctx, record)
	}
	return nil
}
func (m *MockDatabase) UpdateExercise(ctx context.Context, id string, data map[string]interface{}) error {
	if m.UpdateExerciseFunc != nil {
		return m.UpdateExerciseFunc(ctx, id, data)
	}
	return nil
}
func (m *MockDatabase) GetNameMapping(ctx context.Context, appName string) (*types.NameMapping, error) {
	if m.GetNameMappingFunc != nil {
		return m.GetNameMappingFunc(ctx, appName)
	}
	return nil, nil
}
func (m *MockDatabase) SetNameMapping(ctx context.Context, mapping *types.NameMapping) error {
	if m.SetNameMappingFunc != nil {
		return m.SetNameMappingFunc(ctx, mapping)
	}
	return nil
}
func (m *MockDatabase) GetUsage(ctx context.Context, day string) (*types.UsageCounter, error) {
	if m.GetUsageFunc != nil {
		return m.GetUsageFunc(ctx, day)
	}
	return nil, nil
}
func (m *MockDatabase) IncrementUsage(ctx context.Context, day string, n int) error {
	if m.IncrementUsageFunc != nil {
		return m.IncrementUsageFunc(ctx, day, n)
	}
	return nil
}
func (m *MockDatabase) ListUsageSince(ctx context.Context, sinceDay string) ([]*types.UsageCounter, error) {
	if m.ListUsageSinceFunc != nil {
		return m.ListUsageSinceFunc(ctx, sinceDay)
	}
	return nil, nil
}
func (m *MockDatabase) SetExecution(ctx context.Context, record *types.ExecutionRecord) error {
	if m.SetExecutionFunc != nil {
		return m.SetExecutionFunc(ctx, record)
	}
	return nil
}
func (m *MockDatabase) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	if m.UpdateExecutionFunc != nil {
		return m.UpdateExecutionFunc(ctx, id, data)
	}
	return nil
}

// --- Mock Publisher ---
type MockPublisher struct {
	PublishCloudEventFunc func(ctx context.Context, topic string, e event.Event) (string, error)
}

func (m *MockPublisher) PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error) {
	if m.PublishCloudEventFunc != nil {
		return m.PublishCloudEventFunc(ctx, topic, e)
	}
	return "msg-id", nil
}

// --- Mock Storage ---
type MockBlobStore struct {
	WriteFunc func(ctx context.Context, bucket, object string, data []byte) error
	ReadFunc  func(ctx context.Context, bucket, object string) ([]byte, error)
}

func (m *MockBlobStore) Write(ctx context.Context, bucket, object string, data []byte) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, bucket, object, data)
	}
	return nil
}
func (m *MockBlobStore) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, bucket, object)
	}
	return []byte("mock-data"), nil
}

// --- Mock Secrets ---
type MockSecretStore struct {
	GetSecretFunc func(ctx context.Context, projectID, name string) (string, error)
}

func (m *MockSecretStore) GetSecret(ctx context.Context, projectID, name string) (string, error) {
	if m.GetSecretFunc != nil {
		return m.GetSecretFunc(ctx, projectID, name)
	}
	return "", fmt.Errorf("secret not found: %s", name)
}

// --- In-memory Database ---

// MemoryDatabase is a fully functional in-memory Database for tests that
// exercise whole pipelines rather than single calls.
type MemoryDatabase struct {
	Exercises  map[string]*types.ExerciseRecord
	Mappings   map[string]*types.NameMapping
	Usage      map[string]*types.UsageCounter
	Executions map[string]*types.ExecutionRecord
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		Exercises:  make(map[string]*types.ExerciseRecord),
		Mappings:   make(map[string]*types.NameMapping),
		Usage:      make(map[string]*types.UsageCounter),
		Executions: make(map[string]*types.ExecutionRecord),
	}
}

func (m *MemoryDatabase) GetExercise(ctx context.Context, id string) (*types.ExerciseRecord, error) {
	if rec, ok := m.Exercises[id]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}
func (m *MemoryDatabase) SetExercise(ctx context.Context, record *types.ExerciseRecord) error {
	cp := *record
	m.Exercises[record.ExerciseID] = &cp
	return nil
}
func (m *MemoryDatabase) UpdateExercise(ctx context.Context, id string, data map[string]interface{}) error {
	rec, ok := m.Exercises[id]
	if !ok {
		return fmt.Errorf("exercise not found: %s", id)
	}
	for k, v := range data {
		switch k {
		case "last_accessed_at":
			if t, ok := v.(time.Time); ok {
				rec.LastAccessedAt = t
			}
		case "aliases":
			if a, ok := v.([]string); ok {
				rec.Aliases = a
			}
		case "mirrored_media_uri":
			if s, ok := v.(string); ok {
				rec.MirroredMediaURI = s
			}
		}
	}
	return nil
}
func (m *MemoryDatabase) GetNameMapping(ctx context.Context, appName string) (*types.NameMapping, error) {
	if mp, ok := m.Mappings[appName]; ok {
		cp := *mp
		return &cp, nil
	}
	return nil, nil
}
func (m *MemoryDatabase) SetNameMapping(ctx context.Context, mapping *types.NameMapping) error {
	cp := *mapping
	m.Mappings[mapping.AppName] = &cp
	return nil
}
func (m *MemoryDatabase) GetUsage(ctx context.Context, day string) (*types.UsageCounter, error) {
	if u, ok := m.Usage[day]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}
func (m *MemoryDatabase) IncrementUsage(ctx context.Context, day string, n int) error {
	u, ok := m.Usage[day]
	if !ok {
		u = &types.UsageCounter{Day: day}
		m.Usage[day] = u
	}
	u.CallsMade += n
	return nil
}
func (m *MemoryDatabase) ListUsageSince(ctx context.Context, sinceDay string) ([]*types.UsageCounter, error) {
	var out []*types.UsageCounter
	for day, u := range m.Usage {
		if day >= sinceDay {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}
func (m *MemoryDatabase) SetExecution(ctx context.Context, record *types.ExecutionRecord) error {
	cp := *record
	m.Executions[record.ExecutionID] = &cp
	return nil
}
func (m *MemoryDatabase) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	return nil
}

// TotalCalls sums every usage counter, handy for quota assertions.
func (m *MemoryDatabase) TotalCalls() int {
	total := 0
	for _, u := range m.Usage {
		total += u.CallsMade
	}
	return total
}

// Package execution records function invocations in the executions
// collection so failed resolutions can be traced after the fact.
package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jaronwright/workouts-sub003/pkg/types"
)

// Database is the subset of the shared database used for execution logging.
type Database interface {
	SetExecution(ctx context.Context, record *types.ExecutionRecord) error
	UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error
}

const (
	StatusStarted = "STARTED"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Options carries optional metadata captured at start time.
type Options struct {
	TriggerType string
	Inputs      interface{}
}

// LogStart creates an execution record with STARTED status and returns its ID.
func LogStart(ctx context.Context, db Database, service string, opts Options) (string, error) {
	execID := fmt.Sprintf("%s-%s", service, uuid.NewString())

	record := &types.ExecutionRecord{
		ExecutionID: execID,
		Service:     service,
		Status:      StatusStarted,
		TriggerType: opts.TriggerType,
		StartTime:   time.Now().UTC(),
	}

	if opts.Inputs != nil {
		if inputsJSON, err := json.Marshal(opts.Inputs); err == nil {
			record.InputsJSON = string(inputsJSON)
		}
	}

	if err := db.SetExecution(ctx, record); err != nil {
		return execID, fmt.Errorf("failed to log execution start: %w", err)
	}

	return execID, nil
}

// LogSuccess updates an execution record with SUCCESS status.
func LogSuccess(ctx context.Context, db Database, execID string, outputs interface{}) error {
	updates := map[string]interface{}{
		"status":   StatusSuccess,
		"end_time": time.Now().UTC(),
	}

	if outputs != nil {
		if outputsJSON, err := json.Marshal(outputs); err == nil {
			updates["outputs_json"] = string(outputsJSON)
		}
	}

	if err := db.UpdateExecution(ctx, execID, updates); err != nil {
		return fmt.Errorf("failed to log execution success: %w", err)
	}

	return nil
}

// LogFailure updates an execution record with FAILED status.
func LogFailure(ctx context.Context, db Database, execID string, cause error) error {
	updates := map[string]interface{}{
		"status":   StatusFailed,
		"end_time": time.Now().UTC(),
		"error":    cause.Error(),
	}

	if err := db.UpdateExecution(ctx, execID, updates); err != nil {
		return fmt.Errorf("failed to log execution failure: %w", err)
	}

	return nil
}

package types

import "time"

// MatchConfidence records how a name mapping was established.
type MatchConfidence string

const (
	// ConfidenceExact means the normalized search phrase equalled the matched name.
	ConfidenceExact MatchConfidence = "exact"
	// ConfidenceFuzzy means the scorer selected the record heuristically.
	ConfidenceFuzzy MatchConfidence = "fuzzy"
	// ConfidenceAuto marks system-written entries, including permanent misses.
	ConfidenceAuto MatchConfidence = "auto"
)

// ExerciseRecord is a canonical exercise resolved from the upstream database.
// Immutable once cached except for LastAccessedAt, refreshed on every hit,
// and Aliases, which grows as new app names resolve to the same record.
type ExerciseRecord struct {
	ExerciseID       string    `firestore:"exercise_id" json:"exercise_id"`
	Name             string    `firestore:"name" json:"name"`
	MediaURL         string    `firestore:"media_url,omitempty" json:"media_url,omitempty"`
	MirroredMediaURI string    `firestore:"mirrored_media_uri,omitempty" json:"mirrored_media_uri,omitempty"`
	BodyParts        []string  `firestore:"body_parts,omitempty" json:"body_parts,omitempty"`
	Equipment        []string  `firestore:"equipment,omitempty" json:"equipment,omitempty"`
	TargetMuscles    []string  `firestore:"target_muscles,omitempty" json:"target_muscles,omitempty"`
	SecondaryMuscles []string  `firestore:"secondary_muscles,omitempty" json:"secondary_muscles,omitempty"`
	Instructions     []string  `firestore:"instructions,omitempty" json:"instructions,omitempty"`
	Aliases          []string  `firestore:"aliases,omitempty" json:"aliases,omitempty"`
	CreatedAt        time.Time `firestore:"created_at" json:"created_at"`
	LastAccessedAt   time.Time `firestore:"last_accessed_at" json:"last_accessed_at"`
}

// NameMapping links one app-supplied name (case-folded, trimmed) to a cached
// record, or to an explicit "not found". At most one mapping exists per
// normalized name; once written it is never re-queried against the upstream.
type NameMapping struct {
	AppName    string          `firestore:"app_name" json:"app_name"`
	ExerciseID string          `firestore:"exercise_id,omitempty" json:"exercise_id,omitempty"` // empty means confirmed not-found
	Confidence MatchConfidence `firestore:"confidence" json:"confidence"`
	CreatedAt  time.Time       `firestore:"created_at" json:"created_at"`
}

// Resolved reports whether the mapping points at a cached record.
func (m *NameMapping) Resolved() bool {
	return m.ExerciseID != ""
}

// UsageCounter tracks upstream calls made on one calendar day (UTC).
// The monthly total is derived by summing the trailing 30 days of counters.
type UsageCounter struct {
	Day       string    `firestore:"day" json:"day"` // YYYY-MM-DD
	CallsMade int       `firestore:"calls_made" json:"calls_made"`
	UpdatedAt time.Time `firestore:"updated_at" json:"updated_at"`
}

// ResolutionStatus is the terminal state of one resolution request.
type ResolutionStatus string

const (
	StatusResolved       ResolutionStatus = "RESOLVED"
	StatusNotFound       ResolutionStatus = "NOT_FOUND"
	StatusQuotaExhausted ResolutionStatus = "QUOTA_EXHAUSTED"
	StatusTransportError ResolutionStatus = "TRANSPORT_ERROR"
)

// Resolution is the outcome returned to callers.
type Resolution struct {
	Status     ResolutionStatus `json:"status"`
	Record     *ExerciseRecord  `json:"record,omitempty"`
	FromCache  bool             `json:"from_cache,omitempty"`
	RetryAfter time.Time        `json:"retry_after,omitempty"` // set when Status == StatusQuotaExhausted
}

// ResolveRequest is the Pub/Sub payload asking for one name to be resolved.
type ResolveRequest struct {
	Name      string `json:"name"`
	RequestID string `json:"request_id,omitempty"`
}

// ExerciseResolvedEvent is published when a fresh record enters the cache.
type ExerciseResolvedEvent struct {
	AppName    string          `json:"app_name"`
	ExerciseID string          `json:"exercise_id"`
	Name       string          `json:"name"`
	Confidence MatchConfidence `json:"confidence"`
	RequestID  string          `json:"request_id,omitempty"`
}

// ExecutionRecord captures one function invocation for the executions log.
type ExecutionRecord struct {
	ExecutionID string    `firestore:"execution_id" json:"execution_id"`
	Service     string    `firestore:"service" json:"service"`
	Status      string    `firestore:"status" json:"status"`
	TriggerType string    `firestore:"trigger_type,omitempty" json:"trigger_type,omitempty"`
	InputsJSON  string    `firestore:"inputs_json,omitempty" json:"inputs_json,omitempty"`
	OutputsJSON string    `firestore:"outputs_json,omitempty" json:"outputs_json,omitempty"`
	Error       string    `firestore:"error,omitempty" json:"error,omitempty"`
	StartTime   time.Time `firestore:"start_time" json:"start_time"`
	EndTime     time.Time `firestore:"end_time,omitempty" json:"end_time,omitempty"`
}

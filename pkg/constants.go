package shared

import "time"

const (
	ProjectID = "workouts-project" // Can be overridden by env var in main if needed

	TopicResolveExercise  = "topic-resolve-exercise"
	TopicExerciseResolved = "topic-exercise-resolved"

	CollectionExercises    = "exercise_cache"
	CollectionNameMappings = "exercise_name_mappings"
	CollectionUsage        = "api_usage"
	CollectionExecutions   = "executions"

	// Upstream exercise database defaults
	DefaultExerciseDBBaseURL = "https://exercisedb.p.rapidapi.com"
	DefaultSearchLimit       = 10

	// Secret Manager name for the upstream API key (also checked as an env var)
	SecretExerciseDBKey = "EXERCISEDB_API_KEY"

	// Quota ceilings. Set below the upstream hard caps (500/day, 2000/month)
	// to leave safety headroom.
	DailyCallCeiling   = 450
	MonthlyCallCeiling = 1800

	// Fixed wait before the single retry after an HTTP 429
	RateLimitBackoff = 2 * time.Second
)

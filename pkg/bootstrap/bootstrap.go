package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"

	shared "github.com/jaronwright/workouts-sub003/pkg"
	"github.com/jaronwright/workouts-sub003/pkg/infrastructure/database"
	infrapubsub "github.com/jaronwright/workouts-sub003/pkg/infrastructure/pubsub"
	"github.com/jaronwright/workouts-sub003/pkg/infrastructure/secrets"
	infrastorage "github.com/jaronwright/workouts-sub003/pkg/infrastructure/storage"
)

// Config holds standard configuration for all services
type Config struct {
	ProjectID        string
	EnablePublish    bool
	GCSMediaBucket   string
	ExerciseDBBase   string
	ExerciseDBAPIKey string
}

// Service holds initialized dependencies
type Service struct {
	DB      shared.Database
	Store   shared.BlobStore
	Pub     shared.Publisher
	Secrets shared.SecretStore
	Config  *Config
}

// LoadConfig reads configuration from environment variables
func LoadConfig() *Config {
	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		projectID = shared.ProjectID // Fallback
	}

	base := os.Getenv("EXERCISEDB_BASE_URL")
	if base == "" {
		base = shared.DefaultExerciseDBBaseURL
	}

	return &Config{
		ProjectID:        projectID,
		EnablePublish:    os.Getenv("ENABLE_PUBLISH") == "true",
		GCSMediaBucket:   os.Getenv("GCS_MEDIA_BUCKET"),
		ExerciseDBBase:   base,
		ExerciseDBAPIKey: os.Getenv("EXERCISEDB_API_KEY"),
	}
}

// GetSlogHandlerOptions returns standard handler options for GCP
func GetSlogHandlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Map standard keys to Cloud Logging keys
			if a.Key == slog.MessageKey {
				return slog.Attr{Key: "message", Value: a.Value}
			}
			if a.Key == slog.LevelKey {
				return slog.Attr{Key: "severity", Value: a.Value}
			}
			return a
		},
	}
}

// ComponentHandler wraps a slog.Handler to prepend [component] to the message
type ComponentHandler struct {
	slog.Handler
}

// Handle implements slog.Handler
func (h *ComponentHandler) Handle(ctx context.Context, r slog.Record) error {
	var component string

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			component = a.Value.String()
			return false // stop
		}
		return true
	})

	if component != "" {
		newMsg := fmt.Sprintf("[%s] %s", component, r.Message)
		newRecord := slog.NewRecord(r.Time, r.Level, newMsg, r.PC)

		r.Attrs(func(a slog.Attr) bool {
			if a.Key != "component" {
				newRecord.AddAttrs(a)
			}
			return true
		})
		r = newRecord
	}

	return h.Handler.Handle(ctx, r)
}

// InitLogger configures structured logging with Cloud Logging compatible keys
func InitLogger() {
	opts := GetSlogHandlerOptions(slog.LevelInfo)
	handler := slog.NewJSONHandler(os.Stdout, opts)
	logger := slog.New(&ComponentHandler{Handler: handler})
	slog.SetDefault(logger)
}

// NewLogger creates a configured logger instance
func NewLogger(serviceName string, isDev bool) *slog.Logger {
	logLevelStr := os.Getenv("LOG_LEVEL")
	var level slog.Level
	switch strings.ToLower(logLevelStr) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := GetSlogHandlerOptions(level)
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(&ComponentHandler{Handler: handler}).With("service", serviceName)
}

// NewService initializes all standard dependencies
func NewService(ctx context.Context) (*Service, error) {
	InitLogger()
	cfg := LoadConfig()

	slog.Info("Initializing service", "project_id", cfg.ProjectID)

	// Firestore
	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		slog.Error("Firestore init failed", "error", err)
		return nil, fmt.Errorf("firestore init: %w", err)
	}

	// Pub/Sub
	var pubAdapter shared.Publisher
	if cfg.EnablePublish {
		psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			slog.Error("PubSub init failed", "error", err)
			return nil, fmt.Errorf("pubsub init: %w", err)
		}
		pubAdapter = &infrapubsub.PubSubAdapter{Client: psClient}
		slog.Info("Pub/Sub: REAL (ENABLE_PUBLISH=true)")
	} else {
		pubAdapter = &infrapubsub.LogPublisher{}
		slog.Info("Pub/Sub: MOCK (LogPublisher)")
	}

	// Storage
	gcsClient, err := storage.NewClient(ctx)
	if err != nil {
		slog.Error("Storage init failed", "error", err)
		return nil, fmt.Errorf("storage init: %w", err)
	}

	return &Service{
		DB:      database.NewFirestoreAdapter(fsClient),
		Pub:     pubAdapter,
		Store:   &infrastorage.StorageAdapter{Client: gcsClient},
		Secrets: &secrets.SecretsAdapter{},
		Config:  cfg,
	}, nil
}

// APIKey resolves the upstream API key, preferring the environment variable
// and falling back to Secret Manager.
func (s *Service) APIKey(ctx context.Context) (string, error) {
	if s.Config.ExerciseDBAPIKey != "" {
		return s.Config.ExerciseDBAPIKey, nil
	}
	return s.Secrets.GetSecret(ctx, s.Config.ProjectID, shared.SecretExerciseDBKey)
}

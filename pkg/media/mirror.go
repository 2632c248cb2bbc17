// Package media mirrors upstream exercise media into GCS so cached
// records keep working if the upstream CDN rotates or expires URLs.
package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	shared "github.com/jaronwright/workouts-sub003/pkg"
	apperrors "github.com/jaronwright/workouts-sub003/pkg/errors"
	"github.com/jaronwright/workouts-sub003/pkg/types"
)

// maxMediaBytes caps a single download. Exercise GIFs run well under this.
const maxMediaBytes = 10 << 20

// Mirrorer copies an exercise's media into a bucket and records the
// mirrored URI on the cached record.
type Mirrorer struct {
	store  shared.BlobStore
	db     shared.Database
	bucket string
	client *http.Client
}

func NewMirrorer(store shared.BlobStore, db shared.Database, bucket string) *Mirrorer {
	return &Mirrorer{
		store:  store,
		db:     db,
		bucket: bucket,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Mirror downloads the record's media and writes it to the bucket under
// exercises/<id>.gif, then stamps the gs:// URI on the cached record.
// A no-op when the record has no media or a mirror already exists.
func (m *Mirrorer) Mirror(ctx context.Context, record *types.ExerciseRecord) (string, error) {
	if m.bucket == "" || record.MediaURL == "" {
		return "", nil
	}
	if record.MirroredMediaURI != "" {
		return record.MirroredMediaURI, nil
	}

	data, err := m.download(ctx, record.MediaURL)
	if err != nil {
		return "", apperrors.ErrMediaError.WithCause(err)
	}

	object := fmt.Sprintf("exercises/%s.gif", record.ExerciseID)
	if err := m.store.Write(ctx, m.bucket, object, data); err != nil {
		return "", apperrors.ErrMediaError.WithCause(err)
	}

	uri := fmt.Sprintf("gs://%s/%s", m.bucket, object)
	if err := m.db.UpdateExercise(ctx, record.ExerciseID, map[string]interface{}{
		"mirrored_media_uri": uri,
	}); err != nil {
		return "", apperrors.ErrMediaError.WithCause(err)
	}
	record.MirroredMediaURI = uri

	slog.Info("Mirrored exercise media", "exercise_id", record.ExerciseID, "uri", uri, "size_bytes", len(data))
	return uri, nil
}

func (m *Mirrorer) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxMediaBytes {
		return nil, fmt.Errorf("media exceeds %d byte limit", maxMediaBytes)
	}
	return data, nil
}

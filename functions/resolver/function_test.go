package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/jaronwright/workouts-sub003/pkg/bootstrap"
	"github.com/jaronwright/workouts-sub003/pkg/testing/mocks"
	"github.com/jaronwright/workouts-sub003/pkg/types"
)

func searchEnvelope(records ...map[string]interface{}) string {
	payload := map[string]interface{}{"success": true, "data": records}
	b, _ := json.Marshal(payload)
	return string(b)
}

func newResolveEvent(t *testing.T, name string) event.Event {
	t.Helper()
	body, err := json.Marshal(types.ResolveRequest{Name: name, RequestID: "req-1"})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	var msg types.PubSubMessage
	msg.Message.Data = body

	e := cloudevents.NewEvent()
	e.SetType("google.cloud.pubsub.topic.v1.messagePublished")
	e.SetSource("test-source")
	if err := e.SetData(cloudevents.ApplicationJSON, msg); err != nil {
		t.Fatalf("set event data: %v", err)
	}
	return e
}

func newTestService(upstreamURL string) *bootstrap.Service {
	return &bootstrap.Service{
		DB:    mocks.NewMemoryDatabase(),
		Store: &mocks.MockBlobStore{},
		Pub:   &mocks.MockPublisher{},
		Config: &bootstrap.Config{
			ProjectID:        "test-project",
			ExerciseDBBase:   upstreamURL,
			ExerciseDBAPIKey: "test-key",
		},
	}
}

func TestResolveHandlerResolvesAndCaches(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchEnvelope(map[string]interface{}{
			"exerciseId": "ex-55",
			"name":       "barbell bench press",
			"equipments": []string{"barbell"},
		}))
	}))
	defer upstream.Close()

	svc := newTestService(upstream.URL)
	logger := bootstrap.NewLogger("resolver-test", true)

	out, err := resolveHandler(context.Background(), newResolveEvent(t, "Bench Press"), svc, logger, "exec-1")
	if err != nil {
		t.Fatalf("resolveHandler failed: %v", err)
	}

	res, ok := out.(*types.Resolution)
	if !ok {
		t.Fatalf("Expected *types.Resolution output, got %T", out)
	}
	if res.Status != types.StatusResolved {
		t.Fatalf("Expected resolved, got %s", res.Status)
	}
	if res.Record.ExerciseID != "ex-55" {
		t.Errorf("Expected exercise ex-55, got %s", res.Record.ExerciseID)
	}

	mapping, err := svc.DB.GetNameMapping(context.Background(), "bench press")
	if err != nil || mapping == nil {
		t.Fatalf("Expected mapping persisted, got %v err %v", mapping, err)
	}
}

func TestResolveHandlerRejectsEmptyName(t *testing.T) {
	svc := newTestService("http://unused.invalid")
	logger := bootstrap.NewLogger("resolver-test", true)

	if _, err := resolveHandler(context.Background(), newResolveEvent(t, "   "), svc, logger, "exec-2"); err == nil {
		t.Fatal("Expected error for empty name")
	}
}

func TestRequestName(t *testing.T) {
	t.Run("get query param", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/?name="+url.QueryEscape("Incline DB Press"), nil)
		name, err := requestName(r)
		if err != nil {
			t.Fatalf("requestName failed: %v", err)
		}
		if name != "Incline DB Press" {
			t.Errorf("Got %q", name)
		}
	})

	t.Run("post body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"pull-ups"}`))
		name, err := requestName(r)
		if err != nil {
			t.Fatalf("requestName failed: %v", err)
		}
		if name != "pull-ups" {
			t.Errorf("Got %q", name)
		}
	})

	t.Run("missing name", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if _, err := requestName(r); err == nil {
			t.Error("Expected error for missing name")
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodDelete, "/", nil)
		if _, err := requestName(r); err == nil {
			t.Error("Expected error for DELETE")
		}
	})
}

func TestWriteResolutionStatusMapping(t *testing.T) {
	cases := []struct {
		status types.ResolutionStatus
		code   int
	}{
		{types.StatusResolved, http.StatusOK},
		{types.StatusNotFound, http.StatusNotFound},
		{types.StatusQuotaExhausted, http.StatusTooManyRequests},
		{types.StatusTransportError, http.StatusBadGateway},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		writeResolution(w, &types.Resolution{Status: tc.status})
		if w.Code != tc.code {
			t.Errorf("Status %s: expected %d, got %d", tc.status, tc.code, w.Code)
		}
		if tc.status == types.StatusQuotaExhausted && w.Header().Get("Retry-After") == "" {
			t.Error("Expected Retry-After header on quota exhaustion")
		}
	}
}

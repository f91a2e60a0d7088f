package clients_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"exposure-server/internal/clients"
	"exposure-server/shared/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newScenarioServer(t *testing.T, handler func(path string, body map[string]any) (int, string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		status, resp := handler(r.URL.Path, body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(resp))
	}))
}

func TestHTTPScenarioClient_Start(t *testing.T) {
	server := newScenarioServer(t, func(path string, body map[string]any) (int, string) {
		assert.Equal(t, "/api/start-scenario", path)
		assert.Equal(t, "p1", body["patient_id"])
		assert.EqualValues(t, 50, body["initial_sud"])
		assert.NotContains(t, body, "scenario_state")
		return http.StatusOK, `{"status":"success","stage":1,"result":{"story":"You walk into the park.","audio_file":"p1_stage1.mp3"},"scenario_state":{"turn":1,"memory":["park"]}}`
	})
	defer server.Close()

	client := clients.NewHTTPScenarioClient(server.URL+"/", time.Second, zap.NewNop())
	res, err := client.Start(context.Background(), models.StartScenarioRequest{PatientID: "p1", InitialDistress: 50})
	require.NoError(t, err)
	require.Equal(t, models.ScenarioOutcomeChapter, res.Outcome)
	require.NotNil(t, res.Chapter)

	assert.Equal(t, 1, res.Chapter.Stage)
	assert.Equal(t, "You walk into the park.", res.Chapter.NarrativeText)
	require.NotNil(t, res.Chapter.AudioReference)
	assert.Equal(t, server.URL+"/static/audio/p1_stage1.mp3", *res.Chapter.AudioReference)
	assert.JSONEq(t, `{"turn":1,"memory":["park"]}`, string(res.Chapter.ScenarioState))
}

func TestHTTPScenarioClient_AdvanceForwardsOpaqueState(t *testing.T) {
	state := json.RawMessage(`{"turn":1,"memory":["park"]}`)
	server := newScenarioServer(t, func(path string, body map[string]any) (int, string) {
		assert.Equal(t, "/api/next-scenario", path)
		assert.EqualValues(t, 60, body["current_sud"])
		encoded, err := json.Marshal(body["scenario_state"])
		require.NoError(t, err)
		assert.JSONEq(t, string(state), string(encoded))
		return http.StatusOK, `{"status":"success","stage":2,"result":{"story":"A dog barks nearby."}}`
	})
	defer server.Close()

	client := clients.NewHTTPScenarioClient(server.URL, time.Second, zap.NewNop())
	res, err := client.Advance(context.Background(), models.AdvanceScenarioRequest{PatientID: "p1", CurrentDistress: 60, ScenarioState: state})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Chapter.Stage)
	assert.Nil(t, res.Chapter.AudioReference)
}

func TestHTTPScenarioClient_AdvanceDone(t *testing.T) {
	server := newScenarioServer(t, func(path string, body map[string]any) (int, string) {
		return http.StatusOK, `{"status":"done","message":"Session complete"}`
	})
	defer server.Close()

	client := clients.NewHTTPScenarioClient(server.URL, time.Second, zap.NewNop())
	res, err := client.Advance(context.Background(), models.AdvanceScenarioRequest{PatientID: "p1", CurrentDistress: 70})
	require.NoError(t, err)
	assert.Equal(t, models.ScenarioOutcomeDone, res.Outcome)
	assert.Nil(t, res.Chapter)
}

func TestHTTPScenarioClient_Regress(t *testing.T) {
	server := newScenarioServer(t, func(path string, body map[string]any) (int, string) {
		assert.Equal(t, "/api/previous-scenario", path)
		assert.EqualValues(t, 1, body["target_stage"])
		return http.StatusOK, `{"status":"success","stage":1,"result":{"story":"Back at the gate.","audio_file":"https://cdn.example/a.mp3"}}`
	})
	defer server.Close()

	client := clients.NewHTTPScenarioClient(server.URL, time.Second, zap.NewNop())
	res, err := client.Regress(context.Background(), models.RegressScenarioRequest{PatientID: "p1", TargetStage: 1})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a.mp3", *res.Chapter.AudioReference)
}

func TestHTTPScenarioClient_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind models.ErrorKind
	}{
		{"backend error status", http.StatusOK, `{"status":"error","message":"generator unavailable"}`, models.ErrorKindScenario},
		{"bad request with message", http.StatusBadRequest, `{"status":"error","message":"missing patient"}`, models.ErrorKindScenario},
		{"server error", http.StatusBadGateway, `upstream down`, models.ErrorKindNetwork},
		{"not json", http.StatusOK, `<html>`, models.ErrorKindNetwork},
		{"missing story", http.StatusOK, `{"status":"success","stage":2,"result":{"story":""}}`, models.ErrorKindNetwork},
		{"missing stage", http.StatusOK, `{"status":"success","result":{"story":"x"}}`, models.ErrorKindNetwork},
		{"unknown status", http.StatusOK, `{"status":"maybe"}`, models.ErrorKindNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newScenarioServer(t, func(path string, body map[string]any) (int, string) {
				return tt.status, tt.body
			})
			defer server.Close()

			client := clients.NewHTTPScenarioClient(server.URL, time.Second, zap.NewNop())
			res, err := client.Start(context.Background(), models.StartScenarioRequest{PatientID: "p1", InitialDistress: 50})
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.wantKind, models.ClassifyError(err))
			assert.True(t, models.IsRetryable(err))
		})
	}
}

func TestHTTPScenarioClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := clients.NewHTTPScenarioClient(url, time.Second, zap.NewNop())
	_, err := client.Start(context.Background(), models.StartScenarioRequest{PatientID: "p1", InitialDistress: 50})
	assert.ErrorIs(t, err, models.ErrNetwork)
}

func TestHTTPMediaResolver(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/media-suggestions", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch body["narrative_text"] {
		case "forest":
			_, _ = w.Write([]byte(`{"status":"success","suggestions":{"image":"forest.jpg","sound":"birds.mp3"}}`))
		default:
			_, _ = w.Write([]byte(`{"status":"error","message":"no match"}`))
		}
	}))
	defer server.Close()

	resolver := clients.NewHTTPMediaResolver(server.URL, time.Second, zap.NewNop())

	suggestion, err := resolver.Resolve(context.Background(), models.MediaRequest{Stage: 3, NarrativeText: "forest"})
	require.NoError(t, err)
	assert.Equal(t, 3, suggestion.Stage)
	assert.Equal(t, "forest.jpg", *suggestion.Image)
	assert.Nil(t, suggestion.Video)
	assert.True(t, suggestion.HasSound())

	_, err = resolver.Resolve(context.Background(), models.MediaRequest{Stage: 3, NarrativeText: "city"})
	assert.Error(t, err)
}

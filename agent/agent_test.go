package agent_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/absmach/flotilla/agent"
	"github.com/absmach/flotilla/params"
	"github.com/absmach/flotilla/pkg/sdk"
	"github.com/absmach/flotilla/round"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func fastConfig(clientID, url string) agent.Config {
	return agent.Config{
		ClientID:       clientID,
		CoordinatorURL: url,
		WarmUp:         -1,
		RegisterDelay:  10 * time.Millisecond,
		EntryPoll:      10 * time.Millisecond,
		ExitPoll:       10 * time.Millisecond,
		ExitTimeout:    time.Second,
		SettleDelay:    time.Millisecond,
	}
}

// fakeCoordinator is a single-client, single-round coordinator double.
type fakeCoordinator struct {
	mu sync.Mutex

	registered      map[string]bool
	registerFails   int
	currentRound    int
	totalRounds     int
	isTraining      bool
	aggregationDone bool
	updates         int
	submitted       []float64
}

func newFakeCoordinator() *fakeCoordinator {
	return &fakeCoordinator{
		registered:   make(map[string]bool),
		currentRound: 1,
		totalRounds:  1,
		isTraining:   true,
	}
}

func (f *fakeCoordinator) handler(t *testing.T) http.Handler {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		var req struct {
			ClientID string `json:"client_id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if f.registerFails > 0 {
			f.registerFails--
			writeJSON(t, w, http.StatusInternalServerError, map[string]string{"error": "temporarily unavailable"})

			return
		}
		if f.registered[req.ClientID] {
			writeJSON(t, w, http.StatusBadRequest, map[string]string{"error": "entity already exists"})

			return
		}
		f.registered[req.ClientID] = true
		writeJSON(t, w, http.StatusOK, map[string]any{
			"status":           "registered",
			"client_id":        req.ClientID,
			"total_registered": len(f.registered),
		})
	})
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		writeJSON(t, w, http.StatusOK, round.Status{
			CurrentRound:      f.currentRound,
			TotalRounds:       f.totalRounds,
			IsTraining:        f.isTraining,
			RegisteredClients: len(f.registered),
			ExpectedClients:   1,
			UpdatesReceived:   f.updates,
			AggregationDone:   f.aggregationDone,
		})
	})
	mux.HandleFunc("GET /get_weights", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		writeJSON(t, w, http.StatusOK, round.ModelSnapshot{
			Round:       f.currentRound,
			Weights:     params.Encode(params.ParameterSet{{Shape: []int{2}, Data: []float32{1, 2}}}),
			ModelConfig: round.DefaultModelConfig(),
		})
	})
	mux.HandleFunc("POST /submit_update", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		var req sdk.UpdateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		p, err := params.Decode(req.Weights)
		require.NoError(t, err)
		for _, v := range p[0].Data {
			f.submitted = append(f.submitted, float64(v))
		}

		f.updates++
		f.aggregationDone = true
		f.isTraining = false
		writeJSON(t, w, http.StatusOK, round.Ack{
			Round:           f.currentRound,
			UpdatesReceived: f.updates,
		})
	})

	return mux
}

func writeJSON(t *testing.T, w http.ResponseWriter, code int, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

// stubTrainer adds one to every parameter and reports fixed counts.
type stubTrainer struct {
	mu         sync.Mutex
	configured bool
	modelCfg   round.ModelConfig
	trainCalls int
}

func (s *stubTrainer) Configure(cfg round.ModelConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.configured = true
	s.modelCfg = cfg

	return nil
}

func (s *stubTrainer) Train(_ context.Context, p params.ParameterSet) (params.ParameterSet, int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trainCalls++
	out := p.Clone()
	for i := range out {
		for j := range out[i].Data {
			out[i].Data[j]++
		}
	}

	return out, 100, 3, nil
}

func TestAgentFullRound(t *testing.T) {
	fake := newFakeCoordinator()
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	trainer := &stubTrainer{}
	a := agent.New(
		fastConfig("client-0", srv.URL),
		sdk.NewSDK(sdk.Config{CoordinatorURL: srv.URL}),
		trainer,
		nil,
		testLogger(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := a.Run(ctx)
	require.NoError(t, err)

	trainer.mu.Lock()
	defer trainer.mu.Unlock()
	assert.True(t, trainer.configured)
	assert.Equal(t, round.DefaultModelConfig(), trainer.modelCfg)
	assert.Equal(t, 1, trainer.trainCalls)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 1, fake.updates)
	assert.Equal(t, []float64{2, 3}, fake.submitted)
}

func TestAgentRegisterRetries(t *testing.T) {
	fake := newFakeCoordinator()
	fake.registerFails = 3
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	a := agent.New(
		fastConfig("client-0", srv.URL),
		sdk.NewSDK(sdk.Config{CoordinatorURL: srv.URL}),
		&stubTrainer{},
		nil,
		testLogger(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, a.Run(ctx))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.True(t, fake.registered["client-0"])
}

func TestAgentDuplicateRegistrationFatal(t *testing.T) {
	fake := newFakeCoordinator()
	fake.registered["client-0"] = true
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	a := agent.New(
		fastConfig("client-0", srv.URL),
		sdk.NewSDK(sdk.Config{CoordinatorURL: srv.URL}),
		&stubTrainer{},
		nil,
		testLogger(),
	)

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registration rejected")
}

func TestAgentContextCancellation(t *testing.T) {
	fake := newFakeCoordinator()
	fake.isTraining = false
	fake.currentRound = 0
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	a := agent.New(
		fastConfig("client-0", srv.URL),
		sdk.NewSDK(sdk.Config{CoordinatorURL: srv.URL}),
		&stubTrainer{},
		nil,
		testLogger(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	err := a.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

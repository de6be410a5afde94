package sdk

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/absmach/flotilla/round"
)

const CTJSON string = "application/json"

type SDK interface {
	// Health checks the coordinator liveness endpoint.
	//
	// example:
	//  health, _ := sdk.Health()
	//  fmt.Println(health.Status)
	Health() (Health, error)

	// Register enrolls a client with the coordinator. Registration is
	// permanent; re-registering the same ID fails with a 400.
	//
	// example:
	//  reg, _ := sdk.Register("client_1")
	//  fmt.Println(reg.TotalRegistered)
	Register(clientID string) (round.Registration, error)

	// Status returns the coordinator round state snapshot.
	//
	// example:
	//  status, _ := sdk.Status()
	//  fmt.Println(status.IsTraining)
	Status() (round.Status, error)

	// GetWeights fetches the current global model parameters.
	//
	// example:
	//  snapshot, _ := sdk.GetWeights()
	//  fmt.Println(snapshot.Round)
	GetWeights() (round.ModelSnapshot, error)

	// SubmitUpdate sends one round's locally trained parameters.
	//
	// example:
	//  ack, _ := sdk.SubmitUpdate(sdk.UpdateRequest{
	//    ClientID:   "client_1",
	//    Weights:    weights,
	//    NumSamples: 120,
	//  })
	//  fmt.Println(ack.UpdatesReceived)
	SubmitUpdate(req UpdateRequest) (round.Ack, error)

	// StartRound opens the next training round.
	//
	// example:
	//  res, _ := sdk.StartRound()
	//  fmt.Println(res.Round)
	StartRound() (round.StartResult, error)

	// Metrics pages through the per-round evaluation history.
	//
	// example:
	//  page, _ := sdk.Metrics(0, 10)
	//  fmt.Println(page.Total)
	Metrics(offset, limit uint64) (round.MetricsPage, error)
}

type Health struct {
	Status     string `json:"status"`
	Service    string `json:"service"`
	InstanceID string `json:"instance_id"`
	Version    string `json:"version"`
	Timestamp  string `json:"timestamp"`
}

// UpdateRequest is the submit_update payload. Weights carry the nested-array
// wire encoding produced by params.Encode.
type UpdateRequest struct {
	ClientID      string `json:"client_id"`
	Weights       []any  `json:"weights"`
	NumSamples    int    `json:"num_samples"`
	TrainingSteps int    `json:"training_steps,omitempty"`
}

// Error is a non-2xx coordinator reply. Callers distinguish protocol
// rejections from transport failures by asserting on it.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected response code: %d", e.StatusCode)
	}

	return fmt.Sprintf("unexpected response code %d: %s", e.StatusCode, e.Message)
}

type coordSDK struct {
	coordinatorURL string
	client         *http.Client
}

type Config struct {
	CoordinatorURL  string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &coordSDK{
		coordinatorURL: cfg.CoordinatorURL,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

func (sdk *coordSDK) processRequest(method, reqURL string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		var errRes struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &errRes)

		return []byte{}, &Error{StatusCode: resp.StatusCode, Message: errRes.Error}
	}

	return body, nil
}

package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/absmach/flotilla/round"
)

const (
	healthEndpoint     = "/health"
	registerEndpoint   = "/register"
	statusEndpoint     = "/status"
	weightsEndpoint    = "/get_weights"
	submitEndpoint     = "/submit_update"
	startRoundEndpoint = "/start_round"
	metricsEndpoint    = "/metrics/history"
)

func (sdk *coordSDK) Health() (Health, error) {
	url := sdk.coordinatorURL + healthEndpoint

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return Health{}, err
	}

	var h Health
	if err := json.Unmarshal(body, &h); err != nil {
		return Health{}, err
	}

	return h, nil
}

func (sdk *coordSDK) Register(clientID string) (round.Registration, error) {
	data, err := json.Marshal(map[string]string{"client_id": clientID})
	if err != nil {
		return round.Registration{}, err
	}

	url := sdk.coordinatorURL + registerEndpoint

	body, err := sdk.processRequest(http.MethodPost, url, data, http.StatusOK)
	if err != nil {
		return round.Registration{}, err
	}

	var reg round.Registration
	if err := json.Unmarshal(body, &reg); err != nil {
		return round.Registration{}, err
	}

	return reg, nil
}

func (sdk *coordSDK) Status() (round.Status, error) {
	url := sdk.coordinatorURL + statusEndpoint

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return round.Status{}, err
	}

	var status round.Status
	if err := json.Unmarshal(body, &status); err != nil {
		return round.Status{}, err
	}

	return status, nil
}

func (sdk *coordSDK) GetWeights() (round.ModelSnapshot, error) {
	url := sdk.coordinatorURL + weightsEndpoint

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return round.ModelSnapshot{}, err
	}

	var snapshot round.ModelSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return round.ModelSnapshot{}, err
	}

	return snapshot, nil
}

func (sdk *coordSDK) SubmitUpdate(req UpdateRequest) (round.Ack, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return round.Ack{}, err
	}

	url := sdk.coordinatorURL + submitEndpoint

	body, err := sdk.processRequest(http.MethodPost, url, data, http.StatusOK)
	if err != nil {
		return round.Ack{}, err
	}

	var ack round.Ack
	if err := json.Unmarshal(body, &ack); err != nil {
		return round.Ack{}, err
	}

	return ack, nil
}

func (sdk *coordSDK) StartRound() (round.StartResult, error) {
	url := sdk.coordinatorURL + startRoundEndpoint

	body, err := sdk.processRequest(http.MethodPost, url, nil, http.StatusOK)
	if err != nil {
		return round.StartResult{}, err
	}

	var res struct {
		Status      string `json:"status"`
		Round       int    `json:"round"`
		TotalRounds int    `json:"total_rounds"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return round.StartResult{}, err
	}

	return round.StartResult{
		Started:     res.Status == "started",
		Round:       res.Round,
		TotalRounds: res.TotalRounds,
	}, nil
}

func (sdk *coordSDK) Metrics(offset, limit uint64) (round.MetricsPage, error) {
	queries := make([]string, 0)
	if offset > 0 {
		queries = append(queries, fmt.Sprintf("offset=%d", offset))
	}
	if limit > 0 {
		queries = append(queries, fmt.Sprintf("limit=%d", limit))
	}
	query := ""
	if len(queries) > 0 {
		query = "?" + strings.Join(queries, "&")
	}
	url := sdk.coordinatorURL + metricsEndpoint + query

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return round.MetricsPage{}, err
	}

	var page round.MetricsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return round.MetricsPage{}, err
	}

	return page, nil
}

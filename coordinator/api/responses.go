package api

import (
	"net/http"

	"github.com/absmach/flotilla"
	"github.com/absmach/flotilla/round"
)

var (
	_ flotilla.Response = (*registerRes)(nil)
	_ flotilla.Response = (*statusRes)(nil)
	_ flotilla.Response = (*weightsRes)(nil)
	_ flotilla.Response = (*submitUpdateRes)(nil)
	_ flotilla.Response = (*startRoundRes)(nil)
	_ flotilla.Response = (*listMetricsRes)(nil)
)

type registerRes struct {
	Status          string `json:"status"`
	ClientID        string `json:"client_id"`
	TotalRegistered int    `json:"total_registered"`
}

func (r registerRes) Code() int {
	return http.StatusOK
}

func (r registerRes) Headers() map[string]string {
	return map[string]string{}
}

func (r registerRes) Empty() bool {
	return false
}

type statusRes struct {
	round.Status
}

func (r statusRes) Code() int {
	return http.StatusOK
}

func (r statusRes) Headers() map[string]string {
	return map[string]string{}
}

func (r statusRes) Empty() bool {
	return false
}

type weightsRes struct {
	round.ModelSnapshot
}

func (r weightsRes) Code() int {
	return http.StatusOK
}

func (r weightsRes) Headers() map[string]string {
	return map[string]string{}
}

func (r weightsRes) Empty() bool {
	return false
}

type submitUpdateRes struct {
	Status          string `json:"status"`
	Round           int    `json:"round"`
	UpdatesReceived int    `json:"updates_received"`
}

func (r submitUpdateRes) Code() int {
	return http.StatusOK
}

func (r submitUpdateRes) Headers() map[string]string {
	return map[string]string{}
}

func (r submitUpdateRes) Empty() bool {
	return false
}

type startRoundRes struct {
	Status      string `json:"status"`
	Round       int    `json:"round"`
	TotalRounds int    `json:"total_rounds"`
}

func (r startRoundRes) Code() int {
	return http.StatusOK
}

func (r startRoundRes) Headers() map[string]string {
	return map[string]string{}
}

func (r startRoundRes) Empty() bool {
	return false
}

type listMetricsRes struct {
	round.MetricsPage
}

func (r listMetricsRes) Code() int {
	return http.StatusOK
}

func (r listMetricsRes) Headers() map[string]string {
	return map[string]string{}
}

func (r listMetricsRes) Empty() bool {
	return false
}

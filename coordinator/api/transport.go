package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/absmach/flotilla"
	"github.com/absmach/flotilla/coordinator"
	"github.com/absmach/flotilla/pkg/api"
	"github.com/absmach/flotilla/pkg/apiutil"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func MakeHandler(svc coordinator.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Post("/register", otelhttp.NewHandler(kithttp.NewServer(
		registerEndpoint(svc),
		decodeRegisterReq,
		api.EncodeResponse,
		opts...,
	), "register").ServeHTTP)

	mux.Get("/status", otelhttp.NewHandler(kithttp.NewServer(
		statusEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "status").ServeHTTP)

	mux.Get("/get_weights", otelhttp.NewHandler(kithttp.NewServer(
		getWeightsEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "get-weights").ServeHTTP)

	mux.Post("/submit_update", otelhttp.NewHandler(kithttp.NewServer(
		submitUpdateEndpoint(svc),
		decodeSubmitUpdateReq,
		api.EncodeResponse,
		opts...,
	), "submit-update").ServeHTTP)

	mux.Post("/start_round", otelhttp.NewHandler(kithttp.NewServer(
		startRoundEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "start-round").ServeHTTP)

	mux.Get("/metrics/history", otelhttp.NewHandler(kithttp.NewServer(
		listMetricsEndpoint(svc),
		decodeListMetricsReq,
		api.EncodeResponse,
		opts...,
	), "list-metrics").ServeHTTP)

	mux.Get("/health", flotilla.Health("coordinator", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeEmptyReq(_ context.Context, _ *http.Request) (any, error) {
	return emptyReq{}, nil
}

func decodeRegisterReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeSubmitUpdateReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	// Steps default to one when the client omits them; the normalized
	// aggregation method floors at one anyway.
	req := submitUpdateReq{TrainingSteps: 1}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeListMetricsReq(_ context.Context, r *http.Request) (any, error) {
	o, err := apiutil.ReadNumQuery[uint64](r, api.OffsetKey, api.DefOffset)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	l, err := apiutil.ReadNumQuery[uint64](r, api.LimitKey, api.DefLimit)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	return listMetricsReq{
		offset: o,
		limit:  l,
	}, nil
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/absmach/flotilla"
	"github.com/absmach/flotilla/aggregate"
	"github.com/absmach/flotilla/params"
	"github.com/absmach/flotilla/pkg/apiutil"
	pkgerrors "github.com/absmach/flotilla/pkg/errors"
	"github.com/absmach/flotilla/round"
)

const (
	OffsetKey = "offset"
	LimitKey  = "limit"
	DefOffset = 0
	DefLimit  = 100

	ContentType = "application/json"
)

func EncodeResponse(_ context.Context, w http.ResponseWriter, response interface{}) error {
	if ar, ok := response.(flotilla.Response); ok {
		for k, v := range ar.Headers() {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(ar.Code())

		if ar.Empty() {
			return nil
		}
	}

	return json.NewEncoder(w).Encode(response)
}

type errorRes struct {
	Error      string `json:"error"`
	Registered *int   `json:"registered,omitempty"`
	Expected   *int   `json:"expected,omitempty"`
}

func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", ContentType)

	res := errorRes{Error: err.Error()}

	var gate *round.GateError
	switch {
	case errors.As(err, &gate):
		res.Error = round.ErrNotAllRegistered.Error()
		res.Registered = &gate.Registered
		res.Expected = &gate.Expected
		w.WriteHeader(http.StatusBadRequest)
	case errors.Is(err, apiutil.ErrValidation),
		errors.Is(err, apiutil.ErrUnsupportedContentType),
		errors.Is(err, pkgerrors.ErrEntityExists),
		errors.Is(err, pkgerrors.ErrInvalidData),
		errors.Is(err, pkgerrors.ErrEmptyKey),
		errors.Is(err, round.ErrNoActiveRound),
		errors.Is(err, aggregate.ErrZeroSamples),
		errors.Is(err, params.ErrShapeMismatch),
		errors.Is(err, params.ErrRaggedTensor):
		w.WriteHeader(http.StatusBadRequest)
	case errors.Is(err, pkgerrors.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}

	if err := json.NewEncoder(w).Encode(res); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

package apiutil

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	kithttp "github.com/go-kit/kit/transport/http"
)

// LoggingErrorEncoder is a go-kit error encoder wrapper that logs the
// validation error before encoding the response.
func LoggingErrorEncoder(logger *slog.Logger, enc kithttp.ErrorEncoder) kithttp.ErrorEncoder {
	return func(ctx context.Context, err error, w http.ResponseWriter) {
		if errors.Is(err, ErrValidation) {
			logger.Error(err.Error())
		}
		enc(ctx, err, w)
	}
}

// ReadNumQuery reads the value of a numeric query parameter, falling back
// to def when the parameter is absent.
func ReadNumQuery[N ~int64 | ~uint64](r *http.Request, key string, def N) (N, error) {
	vals := r.URL.Query()[key]
	if len(vals) > 1 {
		return 0, errors.Join(ErrInvalidQueryParams, errors.New("duplicate query parameter "+key))
	}
	if len(vals) == 0 {
		return def, nil
	}

	switch any(def).(type) {
	case int64:
		v, err := strconv.ParseInt(vals[0], 10, 64)
		if err != nil {
			return 0, errors.Join(ErrInvalidQueryParams, err)
		}

		return N(v), nil
	default:
		v, err := strconv.ParseUint(vals[0], 10, 64)
		if err != nil {
			return 0, errors.Join(ErrInvalidQueryParams, err)
		}

		return N(v), nil
	}
}

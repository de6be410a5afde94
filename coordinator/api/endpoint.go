package api

import (
	"context"
	"errors"

	"github.com/absmach/flotilla/coordinator"
	"github.com/absmach/flotilla/params"
	"github.com/absmach/flotilla/pkg/apiutil"
	pkgerrors "github.com/absmach/flotilla/pkg/errors"
	"github.com/absmach/flotilla/round"
	"github.com/go-kit/kit/endpoint"
)

func registerEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(registerReq)
		if !ok {
			return registerRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return registerRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		reg, err := svc.Register(ctx, req.ClientID)
		if err != nil {
			return registerRes{}, err
		}

		return registerRes{
			Status:          "registered",
			ClientID:        reg.ClientID,
			TotalRegistered: reg.TotalRegistered,
		}, nil
	}
}

func startRoundEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		res, err := svc.StartRound(ctx)
		if err != nil {
			return startRoundRes{}, err
		}

		status := "started"
		if !res.Started {
			status = "completed"
		}

		return startRoundRes{
			Status:      status,
			Round:       res.Round,
			TotalRounds: res.TotalRounds,
		}, nil
	}
}

func statusEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		status, err := svc.Status(ctx)
		if err != nil {
			return statusRes{}, err
		}

		return statusRes{Status: status}, nil
	}
}

func getWeightsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		snapshot, err := svc.GlobalParameters(ctx)
		if err != nil {
			return weightsRes{}, err
		}

		return weightsRes{ModelSnapshot: snapshot}, nil
	}
}

func submitUpdateEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(submitUpdateReq)
		if !ok {
			return submitUpdateRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return submitUpdateRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		p, err := params.Decode(req.Weights)
		if err != nil {
			return submitUpdateRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		ack, err := svc.SubmitUpdate(ctx, round.Update{
			ClientID:   req.ClientID,
			Params:     p,
			NumSamples: req.NumSamples,
			Steps:      req.TrainingSteps,
		})
		if err != nil {
			return submitUpdateRes{}, err
		}

		return submitUpdateRes{
			Status:          "accepted",
			Round:           ack.Round,
			UpdatesReceived: ack.UpdatesReceived,
		}, nil
	}
}

func listMetricsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listMetricsReq)
		if !ok {
			return listMetricsRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}

		page, err := svc.Metrics(ctx, req.offset, req.limit)
		if err != nil {
			return listMetricsRes{}, err
		}

		return listMetricsRes{MetricsPage: page}, nil
	}
}

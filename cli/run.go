package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const (
	healthAttempts   = 30
	healthDelay      = 2 * time.Second
	registrationWait = 120 * time.Second
	registrationPoll = 2 * time.Second
	roundWait        = 300 * time.Second
	roundPoll        = 2 * time.Second
	interRoundPause  = 3 * time.Second
)

var (
	errCoordinatorDown   = errors.New("coordinator did not become healthy")
	errRegistrationStall = errors.New("clients did not finish registering")
	errRoundStall        = errors.New("round did not complete in time")
)

// NewRunCmd is the experiment driver: it waits for the coordinator and the
// full client fleet, then starts rounds one by one until the run completes.
func NewRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Drive a full training run",
		Long:  `Wait for the coordinator and all expected clients, then start every round in sequence.`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := waitHealthy(); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logSuccessCmd(*cmd, "coordinator is healthy")

			if err := waitRegistered(); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logSuccessCmd(*cmd, "all clients registered")

			for {
				res, err := fsdk.StartRound()
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				if !res.Started {
					logSuccessCmd(*cmd, fmt.Sprintf("training complete after %d rounds", res.Round))

					return
				}
				logSuccessCmd(*cmd, fmt.Sprintf("round %d/%d started", res.Round, res.TotalRounds))

				if err := waitRoundClosed(); err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				logSuccessCmd(*cmd, fmt.Sprintf("round %d complete", res.Round))

				time.Sleep(interRoundPause)
			}
		},
	}
}

func waitHealthy() error {
	for i := 0; i < healthAttempts; i++ {
		if _, err := fsdk.Health(); err == nil {
			return nil
		}
		time.Sleep(healthDelay)
	}

	return errCoordinatorDown
}

func waitRegistered() error {
	deadline := time.Now().Add(registrationWait)
	for time.Now().Before(deadline) {
		status, err := fsdk.Status()
		if err == nil && status.RegisteredClients >= status.ExpectedClients {
			return nil
		}
		time.Sleep(registrationPoll)
	}

	return errRegistrationStall
}

func waitRoundClosed() error {
	deadline := time.Now().Add(roundWait)
	for time.Now().Before(deadline) {
		status, err := fsdk.Status()
		if err == nil && !status.IsTraining {
			return nil
		}
		time.Sleep(roundPoll)
	}

	return errRoundStall
}

package cli

import (
	"strconv"

	"github.com/absmach/flotilla/pkg/sdk"
	"github.com/spf13/cobra"
)

var (
	defOffset uint64 = 0
	defLimit  uint64 = 10
)

var fsdk sdk.SDK

func SetFlotillaSDK(s sdk.SDK) {
	fsdk = s
}

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Coordinator status",
		Long:  `Show the coordinator round state: current round, registration and update counts.`,
		Run: func(cmd *cobra.Command, args []string) {
			status, err := fsdk.Status()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, status)
		},
	}
}

func NewWeightsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weights",
		Short: "Global model parameters",
		Long:  `Fetch the current global model parameters and configuration.`,
		Run: func(cmd *cobra.Command, args []string) {
			snapshot, err := fsdk.GetWeights()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, snapshot)
		},
	}
}

func NewStartRoundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start-round",
		Short: "Start the next round",
		Long:  `Open the next training round. Rejected until every expected client has registered.`,
		Run: func(cmd *cobra.Command, args []string) {
			res, err := fsdk.StartRound()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, res)
		},
	}
}

func NewMetricsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics [offset] [limit]",
		Short: "Evaluation history",
		Long:  `Page through the per-round evaluation metrics history.`,
		Run: func(cmd *cobra.Command, args []string) {
			offset, limit := defOffset, defLimit
			var err error
			if len(args) > 0 {
				if offset, err = strconv.ParseUint(args[0], 10, 64); err != nil {
					logUsageCmd(*cmd, cmd.Use)

					return
				}
			}
			if len(args) > 1 {
				if limit, err = strconv.ParseUint(args[1], 10, 64); err != nil {
					logUsageCmd(*cmd, cmd.Use)

					return
				}
			}

			page, err := fsdk.Metrics(offset, limit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	cmd.PersistentFlags().Uint64VarP(
		&defOffset,
		"offset",
		"o",
		defOffset,
		"Offset",
	)

	cmd.PersistentFlags().Uint64VarP(
		&defLimit,
		"limit",
		"l",
		defLimit,
		"Limit",
	)

	return cmd
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/absmach/flotilla/dataset"
	"github.com/spf13/cobra"
)

var (
	datasetCSV          string
	datasetClients      int
	datasetDistribution string
	datasetAlpha        float64
	datasetOut          string
	datasetSeed         int64
	datasetTestFraction float64
)

func NewDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset [partition]",
		Short: "Dataset tooling",
		Long:  `Prepare per-client dataset shards for a federated run.`,
	}

	partitionCmd := &cobra.Command{
		Use:   "partition",
		Short: "Partition a CSV dataset into per-client shards",
		Long: `Split a labelled CSV dataset into per-client shard files.

Examples:
  # 3 IID shards
  flotilla-cli dataset partition --csv data.csv --clients 3 --out ./shards

  # skewed non-IID shards
  flotilla-cli dataset partition --csv data.csv --clients 5 --distribution noniid --alpha 0.5`,
		Run: func(cmd *cobra.Command, args []string) {
			set, err := dataset.Load(datasetCSV)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			set = dataset.ScaleMinMax(set)

			if datasetTestFraction > 0 {
				var test dataset.Set
				set, test = dataset.SplitTrainTest(set, datasetTestFraction, datasetSeed)
				if err := os.MkdirAll(datasetOut, 0o755); err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				if err := dataset.WriteSet(filepath.Join(datasetOut, "test_data.csv"), test); err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				logSuccessCmd(*cmd, fmt.Sprintf("held out %d test samples", test.Len()))
			}

			var shards []dataset.Set
			switch datasetDistribution {
			case "noniid":
				shards, err = dataset.PartitionDirichlet(set, datasetClients, datasetAlpha, datasetSeed)
			default:
				shards, err = dataset.PartitionIID(set, datasetClients, datasetSeed)
			}
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			if err := dataset.WriteShards(datasetOut, shards); err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			for i, shard := range shards {
				logSuccessCmd(*cmd, fmt.Sprintf("client %d: %d samples", i+1, shard.Len()))
			}
			logOKCmd(*cmd)
		},
	}

	partitionCmd.Flags().StringVar(&datasetCSV, "csv", "", "Source CSV dataset")
	partitionCmd.Flags().IntVar(&datasetClients, "clients", 3, "Number of client shards")
	partitionCmd.Flags().StringVar(&datasetDistribution, "distribution", "iid", "Shard distribution: iid or noniid")
	partitionCmd.Flags().Float64Var(&datasetAlpha, "alpha", 0.5, "Dirichlet concentration for noniid")
	partitionCmd.Flags().StringVar(&datasetOut, "out", "./shards", "Output directory")
	partitionCmd.Flags().Int64Var(&datasetSeed, "seed", 42, "Shuffle seed")
	partitionCmd.Flags().Float64Var(&datasetTestFraction, "test-fraction", 0, "Fraction held out as a test set")
	_ = partitionCmd.MarkFlagRequired("csv")

	cmd.AddCommand(partitionCmd)

	return cmd
}

package main

import (
	"log"
	"os"

	"github.com/absmach/flotilla"
	"github.com/absmach/flotilla/cli"
	"github.com/absmach/flotilla/pkg/sdk"
	"github.com/spf13/cobra"
)

const (
	defCoordinatorURL  = "http://localhost:5000"
	defTLSVerification = false
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "flotilla-cli",
		Short: "Flotilla CLI",
		Long:  `Flotilla CLI is a command line interface for driving and inspecting federated training runs.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			sdkConf := sdk.Config{
				CoordinatorURL:  defCoordinatorURL,
				TLSVerification: defTLSVerification,
			}
			if _, err := os.Stat(configPath); err == nil {
				cfg, err := flotilla.LoadConfig(configPath)
				if err != nil {
					log.Fatal(err)
				}
				if cfg.Coordinator.URL != "" {
					sdkConf.CoordinatorURL = cfg.Coordinator.URL
				}
				sdkConf.TLSVerification = cfg.Coordinator.TLSVerification
			}
			cli.SetFlotillaSDK(sdk.NewSDK(sdkConf))
		},
	}

	rootCmd.PersistentFlags().StringVarP(
		&configPath,
		"config",
		"c",
		"config.toml",
		"Path to the CLI configuration file",
	)

	rootCmd.AddCommand(cli.NewStatusCmd())
	rootCmd.AddCommand(cli.NewWeightsCmd())
	rootCmd.AddCommand(cli.NewStartRoundCmd())
	rootCmd.AddCommand(cli.NewMetricsCmd())
	rootCmd.AddCommand(cli.NewRunCmd())
	rootCmd.AddCommand(cli.NewDatasetCmd())
	rootCmd.AddCommand(cli.NewProvisionCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

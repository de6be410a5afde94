package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/0x6flab/namegenerator"
	"github.com/absmach/flotilla/agent"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

const filePermission = 0o644

var namegen = namegenerator.NewGenerator()

// NewProvisionCmd interactively writes the CLI TOML config plus one JSON
// config per agent, with generated client names as suggestions.
func NewProvisionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "provision",
		Short: "Provision run configuration",
		Long:  `Interactively generate the CLI configuration file and per-agent configuration files.`,
		Run: func(cmd *cobra.Command, args []string) {
			coordinatorURL := "http://localhost:5000"
			brokerURL := ""
			clientsStr := "3"
			dataDir := "./shards"
			outDir := "."

			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("Coordinator URL").
						Value(&coordinatorURL),
					huh.NewInput().
						Title("MQTT broker URL (empty to disable)").
						Value(&brokerURL),
					huh.NewInput().
						Title("Number of agents").
						Value(&clientsStr).
						Validate(func(s string) error {
							n, err := strconv.Atoi(s)
							if err != nil || n < 1 {
								return fmt.Errorf("must be a positive integer")
							}

							return nil
						}),
					huh.NewInput().
						Title("Agent data directory").
						Value(&dataDir),
					huh.NewInput().
						Title("Output directory").
						Value(&outDir),
				),
			)
			if err := form.Run(); err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			clients, err := strconv.Atoi(clientsStr)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			cliConfig := fmt.Sprintf(`[coordinator]
url = %q
tls_verification = false

[agent]
data_dir = %q
broker_url = %q
`, coordinatorURL, dataDir, brokerURL)

			cliPath := filepath.Join(outDir, "config.toml")
			if err := os.WriteFile(cliPath, []byte(cliConfig), filePermission); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logSuccessCmd(*cmd, fmt.Sprintf("wrote %s", cliPath))

			for i := 1; i <= clients; i++ {
				cfg := agent.Config{
					ClientID:       namegen.Generate(),
					CoordinatorURL: coordinatorURL,
					DataDir:        dataDir,
					BrokerURL:      brokerURL,
					LogLevel:       "info",
				}
				data, err := json.MarshalIndent(cfg, "", "  ")
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}

				path := filepath.Join(outDir, fmt.Sprintf("agent_%d.json", i))
				if err := os.WriteFile(path, data, filePermission); err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				logSuccessCmd(*cmd, fmt.Sprintf("wrote %s for %s", path, cfg.ClientID))
			}

			logOKCmd(*cmd)
		},
	}
}

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"bifrost/cli/api"
)

var (
	apiURL string
	client *api.Client
	conf   *Config
)

var rootCmd = &cobra.Command{
	Use:   "bifrost",
	Short: "Trigger and watch remote runs",
	Long: `Bifrost — the bridge to your training hosts.

Log in once, then trigger setup scripts on remote machines and stream
their output live, each run isolated in its own working directory.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		conf = LoadConfig()
		url := apiURL
		if url == "" {
			url = conf.Server
		}
		client = api.New(url, conf.Token)
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	defaultURL := os.Getenv("BIFROST_URL")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", defaultURL, "Bifrost API URL (overrides config)")
}

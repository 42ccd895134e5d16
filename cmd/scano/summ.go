package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/jward/scano/internal/report"
	"github.com/jward/scano/internal/summ"
)

var flagEndpoint string

var summCmd = &cobra.Command{
	Use:   "summ <report.json>",
	Short: "Upload a scan report for summarization and open the result",
	Long: `Posts a previously written report to the summarization service and opens
the download URL it returns. The API key is read from the environment
variable named by [summ].api_key_env in the config file (default
SCANO_SUMM_API_KEY).`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("please provide a JSON file to send")
		}
		return nil
	},
	RunE: runSumm,
}

func init() {
	summCmd.Flags().StringVar(&flagEndpoint, "endpoint", "", "summarization endpoint (overrides the config file)")
}

func runSumm(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := summ.ReadReport(path); err != nil {
		return err
	}

	cfg, err := loadConfig(".")
	if err != nil {
		return err
	}
	endpoint := cfg.SummEndpoint()
	if flagEndpoint != "" {
		endpoint = flagEndpoint
	}

	if rep, err := report.Read(path); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Uploading report: %s\n", report.Summary(rep))
	}

	client := summ.NewClient(endpoint, cfg.SummAPIKey(), summ.WithOpener(func(url string) error {
		fmt.Fprintln(cmd.OutOrStdout(), "Opening the report")
		return browser.OpenURL(url)
	}))
	_, err = client.Run(context.Background(), path)
	return err
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/scano/internal/store"
)

var (
	flagLimit  int
	flagFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history [path]",
	Short: "List previous scans recorded in the history database",
	Args:  cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the per-feature summary of one scan",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	RunE: runHistoryShow,
}

func init() {
	historyCmd.PersistentFlags().IntVar(&flagLimit, "limit", 20, "maximum number of runs to list (0 for all)")
	historyCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")
	historyCmd.PersistentFlags().StringVar(&flagHistoryDB, "history-db", "", "history database (default: .scano/history.db in the repo root)")
	historyCmd.AddCommand(historyShowCmd)
}

// openHistory opens an existing history database for the scan root.
func openHistory(cmd *cobra.Command, root string) (*store.Store, error) {
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}
	dbPath := cfg.HistoryDB
	if flagHistoryDB != "" {
		dbPath = flagHistoryDB
	}
	if dbPath == "" {
		dbPath, err = historyDBPath(cmd, root, cfg)
		if err != nil {
			return nil, err
		}
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("history database not found: %s (run 'scano' first)", dbPath)
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	s, err := openHistory(cmd, root)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.Runs(flagLimit)
	if err != nil {
		return err
	}
	if flagFormat == "json" {
		return writeJSON(cmd, runsToCLI(runs))
	}
	formatRunsText(cmd.OutOrStdout(), runs)
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q: must be an integer", args[0])
	}
	s, err := openHistory(cmd, ".")
	if err != nil {
		return err
	}
	defer s.Close()

	features, err := s.RunFeatures(id)
	if err != nil {
		return err
	}
	if flagFormat == "json" {
		return writeJSON(cmd, featuresToCLI(features))
	}
	formatRunFeaturesText(cmd.OutOrStdout(), features)
	return nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func validateFormat(format string) error {
	switch format {
	case "json", "text":
		return nil
	default:
		return fmt.Errorf("invalid format %q: must be json or text", format)
	}
}

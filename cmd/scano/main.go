package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/scano"
	"github.com/jward/scano/internal/config"
	"github.com/jward/scano/internal/detect"
	"github.com/jward/scano/internal/registry"
)

var (
	flagFile      string
	flagIgnore    []string
	flagRegistry  string
	flagOutputDir string
	flagHistoryDB string
	flagNoHistory bool
	flagRules     []string
	flagConfig    string
)

// errorHandled is set when the error was already reported so main() doesn't
// double-print.
var errorHandled bool

// exitCode is the status a successful command asks main to exit with.
var exitCode int

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			fmt.Fprintln(os.Stderr, `Run "scano help" to see available options.`)
		}
		os.Exit(1)
	}
	os.Exit(exitCode)
}

var rootCmd = &cobra.Command{
	Use:   "scano [path]",
	Short: "Scan web sources for features lacking baseline browser support",
	Long: `Scano scans JavaScript, TypeScript, CSS and HTML files for modern web
platform features and checks each one against browser support data.

It writes a JSON report and a plain-text run log, and exits with status 1
when any detected feature is not supported everywhere.`,
	Example: `  scano                                 Scan the current directory (recursive)
  scano ./folder                        Scan all JS/CSS/HTML in the folder
  scano ./file.js                       Scan a single file
  scano --file=manifest.txt             Scan files listed in a manifest
  scano --ignore=dist,node_modules      Ignore multiple paths (comma-separated)
  scano --ignore=dist --ignore=src/inn  Repeat --ignore
  scano summ report_xx.json             Summarize a report`,
	Args:          cobra.MaximumNArgs(1),
	Version:       scano.Version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runScan,
}

func init() {
	rootCmd.SetVersionTemplate("scano version {{.Version}}\n")
	rootCmd.Flags().StringVarP(&flagFile, "file", "f", "", "scan a single file or the files listed in a manifest")
	rootCmd.Flags().StringArrayVarP(&flagIgnore, "ignore", "i", nil, "glob patterns to ignore, comma-separated or repeated")
	rootCmd.Flags().StringVar(&flagRegistry, "registry", "", "web-features data.json to resolve against (default: a built-in sample of common features)")
	rootCmd.Flags().StringVar(&flagOutputDir, "output-dir", "", "directory for the report and run log (default: current directory)")
	rootCmd.Flags().StringVar(&flagHistoryDB, "history-db", "", "cache and history database (default: .scano/history.db in the repo root)")
	rootCmd.Flags().BoolVar(&flagNoHistory, "no-history", false, "disable the detection cache and run history")
	rootCmd.Flags().StringArrayVar(&flagRules, "rules", nil, "Risor rule script adding keyword overrides (repeatable)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: "+config.FileName+" in the scan root)")

	rootCmd.AddCommand(summCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the scano version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "scano version %s\n", scano.Version)
	},
}

func runScan(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	root, single, err := scano.Target(target)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	opts, err := engineOptions(cmd, root, cfg)
	if err != nil {
		return err
	}
	opts = append(opts, scano.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()))

	engine, err := scano.New(opts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	var out *scano.Outcome
	if single == "" && flagFile == "" {
		out, err = engine.Scan(context.Background(), root)
	} else {
		var files []string
		files, err = selectFiles(engine, root, single)
		if err != nil {
			return err
		}
		out, err = engine.Run(context.Background(), root, files)
	}
	if err != nil {
		// A non-nil outcome means the engine already printed the fatal
		// error and wrote the error report.
		errorHandled = out != nil
		return err
	}
	exitCode = out.ExitCode
	return nil
}

// selectFiles picks the files for a partial scan: the single target file
// or the --file argument.
func selectFiles(engine *scano.Engine, root, single string) ([]string, error) {
	if single != "" {
		return []string{single}, nil
	}

	file := flagFile
	if !filepath.IsAbs(file) {
		if _, err := os.Stat(file); err != nil {
			file = filepath.Join(root, file)
		}
	}
	info, err := os.Stat(file)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s", flagFile)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("--file must be a file: %s", flagFile)
	}
	if rel, err := filepath.Rel(root, file); err == nil && !strings.HasPrefix(rel, "..") && detect.Supported(rel) {
		return []string{filepath.ToSlash(rel)}, nil
	}
	return engine.ReadManifest(root, file)
}

func loadConfig(root string) (*config.Config, error) {
	if flagConfig != "" {
		return config.LoadFile(flagConfig)
	}
	return config.Load(root)
}

// engineOptions layers flags over the config file. Flags win.
func engineOptions(cmd *cobra.Command, root string, cfg *config.Config) ([]scano.Option, error) {
	opts := []scano.Option{
		scano.WithIgnore(cfg.IgnorePatterns()...),
		scano.WithIgnore(splitIgnore(flagIgnore)...),
		scano.WithOverrides(cfg.KeywordOverrides()...),
	}

	regPath := cfg.Registry
	if cmd.Flags().Changed("registry") {
		regPath = flagRegistry
	}
	if regPath != "" {
		reg, err := registry.Load(regPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, scano.WithRegistry(reg))
	}

	outDir := cfg.OutputDir
	if cmd.Flags().Changed("output-dir") {
		outDir = flagOutputDir
	}
	if outDir != "" {
		opts = append(opts, scano.WithOutputDir(outDir))
	}

	rules := cfg.Rules
	if cmd.Flags().Changed("rules") {
		rules = flagRules
	}
	if len(rules) > 0 {
		opts = append(opts, scano.WithRules(rules...))
	}

	if !flagNoHistory {
		dbPath, err := historyDBPath(cmd, root, cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, scano.WithDatabase(dbPath))
	}
	return opts, nil
}

// historyDBPath resolves the database from --history-db, the config file,
// or .scano/history.db in the repository root, creating its directory.
func historyDBPath(cmd *cobra.Command, root string, cfg *config.Config) (string, error) {
	dbPath := cfg.HistoryDB
	if cmd.Flags().Changed("history-db") {
		dbPath = flagHistoryDB
	}
	if dbPath == "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return "", fmt.Errorf("resolving path %q: %w", root, err)
		}
		dbPath = filepath.Join(findRepoRoot(abs), ".scano", "history.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	return dbPath, nil
}

// splitIgnore flattens repeated and comma-separated --ignore values.
func splitIgnore(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			p = strings.TrimLeft(strings.TrimPrefix(p, "./"), "/")
			if p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

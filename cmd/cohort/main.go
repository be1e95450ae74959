package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cohortdata/cohort/internal/pipeline"
	"github.com/cohortdata/cohort/pkg/config"
	json "github.com/cohortdata/cohort/pkg/json"
	"github.com/cohortdata/cohort/pkg/logger"
	"github.com/cohortdata/cohort/pkg/observability"
)

var version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "cohort",
		Short: "Cohort - survey response ingestion",
		Long: `Cohort ingests survey response files (CSV, SPSS .sav, Stata .dta) and
converts them into a typed survey of inferred questions plus one synthetic
respondent agent per row.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cohort v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(newIngestCmd())
	root.AddCommand(newInspectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// ingestOutput is the JSON document the ingest command emits.
type ingestOutput struct {
	Datafile         string            `json:"datafile"`
	Survey           interface{}       `json:"survey"`
	Agents           []map[string]any  `json:"agents"`
	QuestionFailures map[string]string `json:"question_failures,omitempty"`
	TraitFailures    map[string]string `json:"trait_failures,omitempty"`
}

func newIngestCmd() *cobra.Command {
	var (
		configFile string
		format     string
		sampleSize int
		seed       int64
		logLevel   string
		trace      bool
		output     string
	)

	cmd := &cobra.Command{
		Use:   "ingest <datafile>",
		Short: "Ingest a survey datafile into a survey and agents",
		Long: `Ingest reads a survey response file, infers a question type for every
column, and emits the resulting survey and agents as JSON.

Example:
  cohort ingest responses.csv --sample-size 100 --seed 42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(configFile, args[0])
			if err != nil {
				return err
			}
			if format != "" {
				cfg.Format = format
			}
			if sampleSize > 0 {
				cfg.Sampling.Size = sampleSize
			}
			if cmd.Flags().Changed("seed") {
				cfg.Sampling.Seed = seed
			}
			if logLevel != "" {
				cfg.Observability.LogLevel = logLevel
			}
			if trace {
				cfg.Observability.EnableTracing = true
			}

			if err := logger.Init(logger.Config{
				Level:       cfg.Observability.LogLevel,
				Encoding:    "console",
				OutputPaths: []string{"stderr"},
			}); err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			shutdown, err := observability.Init(cfg.Observability.EnableTracing)
			if err != nil {
				return err
			}
			defer func() { _ = shutdown(context.Background()) }()

			result, err := pipeline.New(cfg, logger.Get()).Run(cmd.Context())
			if err != nil {
				return err
			}
			return writeResult(result, output)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "YAML config file")
	cmd.Flags().StringVarP(&format, "format", "f", "", "datafile format override (csv, sav, dta)")
	cmd.Flags().IntVar(&sampleSize, "sample-size", 0, "number of agents to sample (0 keeps all)")
	cmd.Flags().Int64Var(&seed, "seed", 1, "sampling seed")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&trace, "trace", false, "emit spans for pipeline phases")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func newInspectCmd() *cobra.Command {
	var configFile, format string

	cmd := &cobra.Command{
		Use:   "inspect <datafile>",
		Short: "Show inferred question types without materializing agents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(configFile, args[0])
			if err != nil {
				return err
			}
			if format != "" {
				cfg.Format = format
			}

			if err := logger.Init(logger.Config{
				Level:       "warn",
				Encoding:    "console",
				OutputPaths: []string{"stderr"},
			}); err != nil {
				return err
			}

			result, err := pipeline.New(cfg, logger.Get().With(zap.String("command", "inspect"))).Run(cmd.Context())
			if err != nil {
				return err
			}

			for _, q := range result.Survey.Questions {
				fmt.Printf("%-30s %-28s %s\n", q.Name, q.Type, q.Text)
			}
			for name, ferr := range result.QuestionFailures {
				fmt.Printf("%-30s %-28s %v\n", name, "FAILED", ferr)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "YAML config file")
	cmd.Flags().StringVarP(&format, "format", "f", "", "datafile format override (csv, sav, dta)")

	return cmd
}

func buildConfig(configFile, datafile string) (*config.IngestConfig, error) {
	if configFile == "" {
		return config.NewIngestConfig(datafile), nil
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	cfg.Datafile = datafile
	return cfg, nil
}

func writeResult(result *pipeline.Result, output string) error {
	doc := ingestOutput{
		Datafile:         result.Data.DatafileName(),
		Survey:           result.Survey,
		QuestionFailures: make(map[string]string),
		TraitFailures:    result.TraitFailures,
	}
	for name, err := range result.QuestionFailures {
		doc.QuestionFailures[name] = err.Error()
	}
	for _, a := range result.Agents {
		traits := map[string]any{"id": a.ID}
		for _, name := range a.TraitNames() {
			v, _ := a.Trait(name)
			traits[name] = v.Interface()
		}
		doc.Agents = append(doc.Agents, traits)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	if output == "" {
		fmt.Println(string(data))
		return nil
	}
	return os.WriteFile(output, data, 0o644)
}

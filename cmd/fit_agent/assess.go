package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/fit-agent/internal/events"
	"github.com/jonathan/fit-agent/internal/observability"
	"github.com/jonathan/fit-agent/internal/types"
	"github.com/jonathan/fit-agent/internal/validation"
)

var (
	assessMode    string
	assessFile    string
	assessJSON    bool
	assessVerbose bool
)

var assessCmd = &cobra.Command{
	Use:   "assess [query]",
	Short: "Run one assessment and print its events",
	Long: `Run a single assessment in-process. The query is a company name or a job
description; use --file to read it from a file or "-" for stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAssess,
}

func init() {
	assessCmd.Flags().StringVarP(&assessMode, "mode", "m", "auto", "Query mode: auto, company or job_description")
	assessCmd.Flags().StringVarP(&assessFile, "file", "f", "", "Read the query from a file (\"-\" for stdin)")
	assessCmd.Flags().BoolVar(&assessJSON, "json", false, "Print events as JSON lines")
	assessCmd.Flags().BoolVarP(&assessVerbose, "verbose", "v", false, "Show reasoning steps and debug logs")
	rootCmd.AddCommand(assessCmd)
}

func runAssess(cmd *cobra.Command, args []string) error {
	query, err := readQuery(cmd.InOrStdin(), args, assessFile)
	if err != nil {
		return err
	}
	req := types.AssessRequest{Query: query, Mode: types.Mode(assessMode)}
	if err := validation.ValidateRequest(&req); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, assessVerbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ch := events.NewChannel()
	runErr := make(chan error, 1)
	go func() {
		_, err := a.orchestrator.Run(context.WithoutCancel(ctx), req, ch)
		ch.Close()
		runErr <- err
	}()

	emit := eventPrinter(cmd.OutOrStdout(), assessJSON, assessVerbose)
	if err := ch.Drain(ctx, emit); err != nil {
		ch.Cancel()
	}
	return <-runErr
}

// readQuery takes the query from the positional argument or from file.
func readQuery(stdin io.Reader, args []string, file string) (string, error) {
	switch {
	case file != "" && len(args) > 0:
		return "", errors.New("pass the query as an argument or with --file, not both")
	case file == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read query file: %w", err)
		}
		return string(data), nil
	case len(args) == 1 && strings.TrimSpace(args[0]) != "":
		return args[0], nil
	default:
		return "", errors.New("a query is required")
	}
}

func eventPrinter(out io.Writer, asJSON, verbose bool) func(events.Event) error {
	if asJSON {
		enc := json.NewEncoder(out)
		return func(ev events.Event) error {
			return enc.Encode(ev)
		}
	}
	return observability.NewPrinter(out, verbose).PrintEvent
}

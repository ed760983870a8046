package main

import (
	"context"
	"os"

	"budget/internal/cli"
	"budget/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cmd := newRootCmd(openBudget)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openBudget builds the service over the configured backend.
func openBudget(ctx context.Context) (*services.BudgetService, func() error, error) {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := cli.SetupLogger(cfg.LogLevel)
	result, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := result.Cleanup
	if cleanup == nil {
		cleanup = func() error { return nil }
	}
	return services.NewBudgetService(result.Backend, logger), cleanup, nil
}

package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/alvesdmateus/auto-deployer/internal/analyzer"
	"github.com/alvesdmateus/auto-deployer/internal/builder"
	"github.com/alvesdmateus/auto-deployer/internal/builder/dockerfile"
	"github.com/alvesdmateus/auto-deployer/internal/builder/registry"
	"github.com/alvesdmateus/auto-deployer/internal/fetcher"
	"github.com/alvesdmateus/auto-deployer/internal/identity"
	"github.com/alvesdmateus/auto-deployer/internal/orchestrator"
	"github.com/alvesdmateus/auto-deployer/internal/provisioner/terraform"
	"github.com/alvesdmateus/auto-deployer/internal/state"
	"github.com/alvesdmateus/auto-deployer/pkg/config"
	"github.com/alvesdmateus/auto-deployer/pkg/database"
)

// buildCoordinator assembles the pipeline coordinator and its collaborators.
func buildCoordinator(ctx context.Context, cfg *config.Config, region string, logger zerolog.Logger) (*orchestrator.Coordinator, error) {
	resolver, err := identity.NewResolver(ctx, region, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity resolver: %w", err)
	}

	engine, err := builder.NewEngine(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create build engine: %w", err)
	}

	registryClient, err := registry.NewECRClient(ctx, registry.Config{
		Type:   cfg.Registry.Type,
		Region: region,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry client: %w", err)
	}

	provisioners := func(serviceName string) (orchestrator.Provisioner, error) {
		workDir, err := terraform.EnsureWorkspace(cfg.Provisioner.StateDir, cfg.Provisioner.TemplateDir, serviceName)
		if err != nil {
			return nil, err
		}
		return terraform.NewRunner(workDir, logger)
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	return orchestrator.NewCoordinator(
		resolver,
		fetcher.New(logger),
		analyzer.New(logger),
		dockerfile.NewGenerator(logger),
		engine,
		registryClient,
		provisioners,
		store,
		logger,
	), nil
}

// openStore opens the local run-history database. A broken store disables
// history instead of blocking deployments.
func openStore(cfg *config.Config, logger zerolog.Logger) (*state.Repository, error) {
	db, err := database.Open(cfg.State.DatabasePath)
	if err != nil {
		logger.Warn().Err(err).Msg("Run history unavailable")
		return nil, nil
	}
	if err := database.Migrate(db, &state.Run{}); err != nil {
		logger.Warn().Err(err).Msg("Run history unavailable")
		return nil, nil
	}
	return state.NewRepository(db), nil
}

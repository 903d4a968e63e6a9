package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sentinelgate/execgate/internal/adapter/outbound/memory"
	"github.com/sentinelgate/execgate/internal/adapter/outbound/registrystore"
	"github.com/sentinelgate/execgate/internal/adapter/outbound/tokenstore"
	"github.com/sentinelgate/execgate/internal/config"
	"github.com/sentinelgate/execgate/internal/domain/kernel"
	"github.com/sentinelgate/execgate/internal/domain/registry"
	"github.com/sentinelgate/execgate/internal/domain/scope"
	"github.com/sentinelgate/execgate/internal/port"
	"github.com/sentinelgate/execgate/internal/service"
)

// buildGate assembles the full authority pipeline + kernel + approval
// bridge from a loaded GateConfig, the way run/policy-check/approve all
// need it wired.
func buildGate(cfg *config.GateConfig, logger *slog.Logger) (*service.Gate, error) {
	reg, err := buildRegistry(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}

	approvals, err := buildApprovalStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("build approval store: %w", err)
	}

	cond, err := scope.NewConditionEvaluator()
	if err != nil {
		return nil, fmt.Errorf("build condition evaluator: %w", err)
	}

	pipeline := service.NewPipeline(scope.DefaultElevation{}, cond, reg, logger)
	k := kernel.New(reg, logger)

	return service.NewGate(pipeline, k, approvals, cfg.StrictReplay), nil
}

func buildRegistry(cfg *config.GateConfig, logger *slog.Logger) (*registry.Registry, error) {
	if config.RegistryBackend(cfg.RegistryBackend) == config.RegistryBackendMemory {
		return registry.New(nil, nil, logger), nil
	}

	store, err := registrystore.NewFileStore(cfg.AuditDir, logger)
	if err != nil {
		return nil, err
	}

	reg := registry.New(store, store, logger)

	entries, err := store.LoadForHydration()
	if err != nil {
		logger.Warn("registry: hydration failed, starting with an empty replay set", "error", err)
		return reg, nil
	}
	reg.Init(entries, time.Now())
	return reg, nil
}

func buildApprovalStore(cfg *config.GateConfig) (port.ApprovalStore, error) {
	if config.ApprovalBackend(cfg.ApprovalBackend) == config.ApprovalBackendMemory {
		return memory.NewApprovalStore(), nil
	}
	return tokenstore.Open(cfg.ApprovalDBPath)
}

package main

import (
	"codeberg.org/sajtmaskin/server/internal/clarify"
	"codeberg.org/sajtmaskin/server/internal/config"
	"codeberg.org/sajtmaskin/server/internal/coordinator"
	"codeberg.org/sajtmaskin/server/internal/kv"
	"codeberg.org/sajtmaskin/server/internal/lock"
	"codeberg.org/sajtmaskin/server/internal/projects"
	"codeberg.org/sajtmaskin/server/internal/reconcile"
	"codeberg.org/sajtmaskin/server/internal/v0"
)

// creates the remote client and the coordinator around it
func InitializeServices(cfg *config.Config, store kv.Store, projectRepo *projects.Repository) *Services {
	remote := v0.NewClient(v0.ClientConfig{
		APIKey:            cfg.V0APIKey,
		BaseURL:           cfg.V0BaseURL,
		OverallTimeout:    cfg.Coordination.OverallTimeout,
		InactivityTimeout: cfg.Coordination.InactivityTimeout,
	})

	admission := lock.NewController(store, lock.Config{
		Cooldown:     cfg.Coordination.Cooldown,
		StaleCeiling: cfg.Coordination.StaleCeiling,
	})

	coord := coordinator.New(
		remote,
		admission,
		clarify.NewStore(store),
		reconcile.NewReconciler(remote),
		projectRepo,
	)

	return &Services{
		Coordinator: coord,
		Remote:      remote,
	}
}

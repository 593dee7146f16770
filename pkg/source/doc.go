// Package source checks out input tables from a Git repository.
//
// A Repository is cloned on the first Sync and pulled on every later
// one. The runner syncs before loading tables, so scheduled runs always
// validate the tip of the configured branch:
//
//	repo, err := source.NewRepository(&cfg.Source.Git, logger)
//	result, err := repo.Sync(ctx)
//	inputs := repo.Resolve(cfg.Validation.Inputs)
//
// Pulls never force. A diverged checkout fails the sync instead of
// discarding local history.
package source

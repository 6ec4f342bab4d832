package commands

import (
	"git.home.luguber.info/inful/distbuilder/internal/artifact"
	"git.home.luguber.info/inful/distbuilder/internal/config"
	"git.home.luguber.info/inful/distbuilder/internal/envprep"
	"git.home.luguber.info/inful/distbuilder/internal/pipeline"
	"git.home.luguber.info/inful/distbuilder/internal/retry"
)

// AssembleStages converts the configuration into runnable stages, anchoring
// every relative path at the project root.
func AssembleStages(cfg *config.Config) []pipeline.Stage {
	stages := make([]pipeline.Stage, 0, len(cfg.Stages))
	for _, sc := range cfg.Stages {
		st := pipeline.Stage{
			Name:        sc.Name,
			Commands:    sc.Commands,
			Dir:         stageDir(cfg, sc.Dir),
			Env:         sc.Env,
			MaxAttempts: sc.MaxAttempts,
			RetryDelay:  sc.RetryDelayDuration(),
		}
		for _, p := range sc.CleanupOnRetry {
			st.CleanupOnRetry = append(st.CleanupOnRetry, cfg.Resolve(p))
		}
		if sc.Prepare != nil {
			st.Prerequisite = &envprep.Prerequisite{
				Marker:   cfg.Resolve(sc.Prepare.Marker),
				Commands: sc.Prepare.Commands,
				Dir:      stageDir(cfg, sc.Prepare.Dir),
			}
		}
		if sc.Artifact != nil {
			rule := artifact.NewGlobRule(
				cfg.Resolve(sc.Artifact.SearchRoot),
				sc.Artifact.MatchName,
				sc.Artifact.Exclude,
				cfg.Resolve(sc.Artifact.Destination),
				sc.Artifact.Required,
			)
			st.Artifact = &rule
		}
		stages = append(stages, st)
	}
	return stages
}

// stageDir resolves a working directory, defaulting to the project root so
// stages without a dir run from a predictable location.
func stageDir(cfg *config.Config, dir string) string {
	if dir == "" {
		return cfg.ProjectRoot
	}
	return cfg.Resolve(dir)
}

// BackoffPolicy builds the shared retry policy from configuration. Per-stage
// retry_delay overrides the initial delay at execution time.
func BackoffPolicy(cfg *config.Config) retry.Policy {
	return retry.NewPolicy(
		config.NormalizeRetryBackoff(cfg.Retry.Backoff),
		0,
		cfg.Retry.MaxDelayDuration(),
	)
}

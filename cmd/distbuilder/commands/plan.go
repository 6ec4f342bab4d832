package commands

import (
	"fmt"

	"git.home.luguber.info/inful/distbuilder/internal/config"
)

// PlanCmd implements the 'plan' command: it resolves the configuration and
// prints the stages in execution order without running anything.
type PlanCmd struct{}

func (p *PlanCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	stages := AssembleStages(cfg)

	fmt.Printf("Project root: %s\n", cfg.ProjectRoot)
	fmt.Printf("Backoff: %s (max %s)\n", cfg.Retry.Backoff, cfg.Retry.MaxDelay)

	for i, st := range stages {
		fmt.Printf("\n%d. %s\n", i+1, st.Name)
		fmt.Printf("   dir: %s\n", st.Dir)
		if st.MaxAttempts > 1 {
			fmt.Printf("   attempts: %d (delay %s)\n", st.MaxAttempts, st.RetryDelay)
		}
		if st.Prerequisite != nil {
			fmt.Printf("   prepare (marker %s):\n", st.Prerequisite.Marker)
			for _, c := range st.Prerequisite.Commands {
				fmt.Printf("     $ %s\n", c)
			}
		}
		for _, c := range st.Commands {
			fmt.Printf("   $ %s\n", c)
		}
		for _, cp := range st.CleanupOnRetry {
			fmt.Printf("   cleanup on retry: %s\n", cp)
		}
		if st.Artifact != nil {
			req := ""
			if st.Artifact.Required {
				req = " (required)"
			}
			fmt.Printf("   artifact: %s -> %s%s\n", st.Artifact.SearchRoot, st.Artifact.Destination, req)
		}
	}
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arborlore/arbor/internal/cli"
	"github.com/arborlore/arbor/internal/tree"
)

func fixCmd() *cobra.Command {
	var fixPaths bool
	var skipCheckpoint bool

	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Repair a corrupted category tree",
		Long: `Recompute depth, child counters, the root counter, sibling slug
uniqueness and every derived field from the stored rows. With --paths the
paths themselves are rebuilt from their relative order, closing gaps and
grafting orphaned subtrees under their nearest surviving ancestor.

Because --paths rewrites every row, an automatic checkpoint is created
first unless --no-checkpoint is given.`,
		Example: `  arbor fix
  arbor fix --paths`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if fixPaths && !skipCheckpoint {
				manager, err := store.NewCheckpointManager()
				if err != nil {
					return fmt.Errorf("failed to create checkpoint manager: %w", err)
				}
				info, err := manager.Create(ctx, "", "before fix --paths", true)
				if err != nil {
					return fmt.Errorf("failed to create safety checkpoint: %w", err)
				}
				fmt.Printf("%s Created safety checkpoint %s\n",
					cli.SuccessStyle.Render("✓"),
					cli.InfoStyle.Render(info.ID))
			}

			engine := newEngine(store)
			if err := engine.FixTree(ctx, tree.FixOptions{FixPaths: fixPaths}); err != nil {
				return fmt.Errorf("failed to repair tree: %w", err)
			}

			fmt.Printf("%s Tree repaired\n", cli.SuccessStyle.Render("✓"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&fixPaths, "paths", false, "Rebuild paths from their relative order")
	cmd.Flags().BoolVar(&skipCheckpoint, "no-checkpoint", false, "Skip the automatic safety checkpoint")

	return cmd
}

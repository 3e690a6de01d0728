package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arborlore/arbor/internal/cli"
)

func addCmd() *cobra.Command {
	var parentRef string
	var slugHint string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Long: `Create a new category. Without --parent the category becomes a new
root; with --parent it is appended as the last child of that category.`,
		Example: `  # A new root category
  arbor add "Books"

  # A child, parent referenced by id or full slug
  arbor add "Fiction" --parent books
  arbor add "Horror" --parent books/fiction --slug scary-stuff`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := newEngine(store)

			name := args[0]
			if parentRef == "" {
				created, err := engine.AddRoot(ctx, name, slugHint)
				if err != nil {
					return fmt.Errorf("failed to add category: %w", err)
				}
				fmt.Printf("%s Added root category %s (id %d)\n",
					cli.SuccessStyle.Render("✓"),
					cli.InfoStyle.Render(created.FullSlug),
					created.ID)
				return nil
			}

			parentID, err := resolveCategory(ctx, store, parentRef)
			if err != nil {
				return err
			}
			created, err := engine.AddChild(ctx, parentID, name, slugHint)
			if err != nil {
				return fmt.Errorf("failed to add category: %w", err)
			}
			fmt.Printf("%s Added category %s (id %d)\n",
				cli.SuccessStyle.Render("✓"),
				cli.InfoStyle.Render(created.FullSlug),
				created.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&parentRef, "parent", "p", "", "Parent category (id or full slug)")
	cmd.Flags().StringVarP(&slugHint, "slug", "s", "", "Slug (derived from the name if omitted)")

	return cmd
}

func renameCmd() *cobra.Command {
	var newSlug string

	cmd := &cobra.Command{
		Use:   "rename <category> <new-name>",
		Short: "Rename a category",
		Long: `Change a category's display name. The slug is kept unless --slug is
given; full names of the whole subtree are updated either way.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := newEngine(store)

			id, err := resolveCategory(ctx, store, args[0])
			if err != nil {
				return err
			}
			renamed, err := engine.Rename(ctx, id, args[1], newSlug)
			if err != nil {
				return fmt.Errorf("failed to rename category: %w", err)
			}

			fmt.Printf("%s Renamed to %s\n",
				cli.SuccessStyle.Render("✓"),
				cli.InfoStyle.Render(renamed.FullName))
			return nil
		},
	}

	cmd.Flags().StringVarP(&newSlug, "slug", "s", "", "New slug (kept if omitted)")

	return cmd
}

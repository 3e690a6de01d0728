package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arborlore/arbor/internal/cli"
	"github.com/arborlore/arbor/internal/tree"
)

func moveCmd() *cobra.Command {
	var position string

	cmd := &cobra.Command{
		Use:   "move <category> <target>",
		Short: "Move a category and its subtree",
		Long: `Relocate a category relative to a target category. Both can be
referenced by id or full slug. Positions: first-child, last-child, left,
right, first-sibling, last-sibling.`,
		Example: `  # Make Horror the last child of Non-fiction
  arbor move books/fiction/horror books/non-fiction --position last-child

  # Put Comedy directly before Horror
  arbor move books/fiction/comedy books/fiction/horror --position left`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pos, err := tree.ParsePosition(position)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := newEngine(store)

			nodeID, err := resolveCategory(ctx, store, args[0])
			if err != nil {
				return err
			}
			targetID, err := resolveCategory(ctx, store, args[1])
			if err != nil {
				return err
			}

			if err := engine.Move(ctx, nodeID, targetID, pos); err != nil {
				return fmt.Errorf("failed to move category: %w", err)
			}

			moved, err := store.GetCategoryByID(ctx, nodeID)
			if err != nil {
				return err
			}
			fmt.Printf("%s Moved to %s\n",
				cli.SuccessStyle.Render("✓"),
				cli.InfoStyle.Render(moved.FullName))
			return nil
		},
	}

	cmd.Flags().StringVarP(&position, "position", "P", string(tree.PositionLastChild),
		fmt.Sprintf("Where to land relative to target (%s)", strings.Join([]string{
			string(tree.PositionFirstChild), string(tree.PositionLastChild),
			string(tree.PositionLeft), string(tree.PositionRight),
			string(tree.PositionFirstSibling), string(tree.PositionLastSibling),
		}, ", ")))

	return cmd
}

func deleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <category>",
		Short: "Delete a category and its subtree",
		Long:  `Remove a category and every descendant. Trailing siblings close the gap.`,
		Args:  cobra.ExactArgs(1),
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
			doomed, err := store.GetCategoryByID(ctx, id)
			if err != nil {
				return err
			}

			if !force {
				descendants, err := store.DescendantsOf(ctx, doomed.Path)
				if err != nil {
					return err
				}
				fmt.Printf("%s This will delete %s and its %d descendants.\n",
					cli.WarningStyle.Render("⚠️"),
					cli.InfoStyle.Render(doomed.FullName),
					len(descendants))
				fmt.Printf("\nContinue? (y/N) ")

				var response string
				_, _ = fmt.Scanln(&response)
				if !strings.HasPrefix(strings.ToLower(response), "y") {
					fmt.Println(cli.SubtitleStyle.Render("Deletion cancelled."))
					return nil
				}
			}

			if err := engine.DeleteSubtree(ctx, id); err != nil {
				return fmt.Errorf("failed to delete category: %w", err)
			}

			fmt.Printf("%s Deleted %s\n",
				cli.SuccessStyle.Render("✓"),
				cli.InfoStyle.Render(doomed.FullName))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

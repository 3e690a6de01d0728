package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arborlore/arbor/internal/cli"
	"github.com/arborlore/arbor/internal/model"
	"github.com/arborlore/arbor/internal/render"
	"github.com/arborlore/arbor/internal/tree"
	"github.com/arborlore/arbor/internal/tui"
)

func treeCmd() *cobra.Command {
	var rootRef string
	var maxDepth int
	var asHTML bool

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the category tree",
		Long: `Render the category tree to stdout, as an indented text tree or as a
nested HTML list. --root limits the output to one subtree, --depth cuts
the tree off that many levels below the root.`,
		Example: `  arbor tree
  arbor tree --root books --depth 3
  arbor tree --html > categories.html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := newEngine(store)

			var parent *model.Category
			if rootRef != "" {
				id, err := resolveCategory(ctx, store, rootRef)
				if err != nil {
					return err
				}
				parent, err = store.GetCategoryByID(ctx, id)
				if err != nil {
					return err
				}
			}

			seq, err := engine.AnnotatedList(ctx, tree.AnnotateOptions{Parent: parent, MaxDepth: maxDepth})
			if err != nil {
				return err
			}
			items := tree.CollectAnnotated(seq)
			if len(items) == 0 {
				fmt.Println(cli.InfoStyle.Render("No categories found. Use 'arbor add' to create one."))
				return nil
			}

			if asHTML {
				return render.HTML(os.Stdout, items)
			}
			return render.Text(os.Stdout, items)
		},
	}

	cmd.Flags().StringVarP(&rootRef, "root", "r", "", "Limit output to this subtree (id or full slug)")
	cmd.Flags().IntVarP(&maxDepth, "depth", "d", 0, "Show at most this many levels below the root (0 = no limit)")
	cmd.Flags().BoolVar(&asHTML, "html", false, "Emit a nested HTML list instead of text")

	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <category>",
		Short: "Show one category in detail",
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
			c, err := store.GetCategoryByID(ctx, id)
			if err != nil {
				return err
			}
			url, err := engine.URL(ctx, c)
			if err != nil {
				return err
			}

			fmt.Println(cli.TitleStyle.Render(c.FullName))
			fmt.Printf("  %s %d\n", cli.SubtleStyle.Render("id:"), c.ID)
			fmt.Printf("  %s %s\n", cli.SubtleStyle.Render("slug:"), c.Slug)
			fmt.Printf("  %s %s\n", cli.SubtleStyle.Render("full slug:"), c.FullSlug)
			fmt.Printf("  %s %s\n", cli.SubtleStyle.Render("url:"), url)
			fmt.Printf("  %s %d\n", cli.SubtleStyle.Render("depth:"), c.Depth)
			fmt.Printf("  %s %d\n", cli.SubtleStyle.Render("children:"), c.NumChild)
			return nil
		},
	}
}

func browseCmd() *cobra.Command {
	var maxDepth int

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse the category tree interactively",
		Long:  `Open a terminal browser over the category tree with collapsible branches.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			return tui.Run(ctx, tui.Config{
				Engine:   newEngine(store),
				MaxDepth: maxDepth,
			})
		},
	}

	cmd.Flags().IntVarP(&maxDepth, "depth", "d", 0, "Show at most this many levels (0 = no limit)")

	return cmd
}

package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/arborlore/arbor/internal/cli"
)

func importCmd() *cobra.Command {
	var separator string
	var filePath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import categories from breadcrumb trails",
		Long: `Read breadcrumb trails (one per line, like "Books > Fiction > Horror")
and create the categories they describe. Existing categories are reused,
so importing the same file twice is harmless. Blank lines and lines
starting with # are skipped.`,
		Example: `  arbor import --file categories.txt
  cat categories.txt | arbor import
  arbor import --file menu.csv --separator ","`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			input := os.Stdin
			if filePath != "" {
				f, err := os.Open(filePath)
				if err != nil {
					return fmt.Errorf("failed to open import file: %w", err)
				}
				defer f.Close()
				input = f
			}

			var trails []string
			scanner := bufio.NewScanner(input)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" || strings.HasPrefix(line, "#") {
					continue
				}
				trails = append(trails, line)
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read trails: %w", err)
			}
			if len(trails) == 0 {
				fmt.Println(cli.InfoStyle.Render("Nothing to import."))
				return nil
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := newEngine(store)

			bar := progressbar.NewOptions(len(trails),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("[cyan][bold]Importing categories...[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
			)

			imported := 0
			for _, trail := range trails {
				if _, err := engine.CreateFromBreadcrumbs(ctx, trail, separator); err != nil {
					slog.Warn("skipped trail", "trail", trail, "error", err)
				} else {
					imported++
				}
				_ = bar.Add(1)
			}
			fmt.Fprintln(os.Stderr)

			fmt.Printf("%s Imported %d of %d trails\n",
				cli.SuccessStyle.Render("✓"), imported, len(trails))
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Trail file (stdin if omitted)")
	cmd.Flags().StringVarP(&separator, "separator", "s", ">", "Separator between trail segments")

	return cmd
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/arborlore/arbor/internal/cli"
	"github.com/arborlore/arbor/internal/storage"
)

func checkpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Manage database checkpoints",
		Long: `Create, list, restore, and delete database checkpoints.

Checkpoints save the state of the category tree before risky changes,
like a big import or a path repair, and let you roll back if needed.`,
		Example: `  # Create a checkpoint before importing new data
  arbor checkpoint create --tag "pre-import"

  # List all checkpoints
  arbor checkpoint list

  # Restore from a checkpoint
  arbor checkpoint restore pre-import

  # Delete an old checkpoint
  arbor checkpoint delete pre-import`,
	}

	cmd.AddCommand(createCheckpointCmd())
	cmd.AddCommand(listCheckpointsCmd())
	cmd.AddCommand(restoreCheckpointCmd())
	cmd.AddCommand(deleteCheckpointCmd())

	return cmd
}

func createCheckpointCmd() *cobra.Command {
	var tag string
	var description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new checkpoint",
		Long:  `Create a snapshot of the current database state.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			manager, err := store.NewCheckpointManager()
			if err != nil {
				return fmt.Errorf("failed to create checkpoint manager: %w", err)
			}

			info, err := manager.Create(ctx, tag, description, false)
			if err != nil {
				return fmt.Errorf("failed to create checkpoint: %w", err)
			}

			fmt.Printf("%s Created checkpoint %s (%s)\n",
				cli.SuccessStyle.Render("✓"),
				cli.InfoStyle.Render(info.ID),
				formatFileSize(info.FileSize))

			if info.Description != "" {
				fmt.Printf("  Description: %s\n", info.Description)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Checkpoint tag/name (auto-generated if not provided)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description of the checkpoint")

	return cmd
}

func listCheckpointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all checkpoints",
		Long:  `Display all available checkpoints with their metadata.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			manager, err := store.NewCheckpointManager()
			if err != nil {
				return fmt.Errorf("failed to create checkpoint manager: %w", err)
			}

			checkpoints, err := manager.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list checkpoints: %w", err)
			}

			if len(checkpoints) == 0 {
				fmt.Println(cli.SubtitleStyle.Render("No checkpoints found."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

			fmt.Fprintln(w, strings.Join([]string{
				cli.TableHeaderStyle.Render("NAME"),
				cli.TableHeaderStyle.Render("CREATED"),
				cli.TableHeaderStyle.Render("SIZE"),
				cli.TableHeaderStyle.Render("CATEGORIES"),
				cli.TableHeaderStyle.Render("TYPE"),
			}, "\t"))

			for _, cp := range checkpoints {
				typeLabel := "manual"
				if cp.IsAuto {
					typeLabel = "auto"
				}

				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					cli.InfoStyle.Render(cp.ID),
					formatRelativeTime(cp.CreatedAt),
					formatFileSize(cp.FileSize),
					cp.Categories,
					cli.SubtitleStyle.Render(typeLabel),
				)
			}

			return w.Flush()
		},
	}
}

func restoreCheckpointCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <checkpoint-id>",
		Short: "Restore database from a checkpoint",
		Long:  `Replace the current database with a checkpoint.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			checkpointID := args[0]

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			manager, err := store.NewCheckpointManager()
			if err != nil {
				return fmt.Errorf("failed to create checkpoint manager: %w", err)
			}

			info, err := findCheckpoint(ctx, manager, checkpointID)
			if err != nil {
				return err
			}

			if !force {
				fmt.Printf("%s This will replace your current database with checkpoint %s.\n",
					cli.WarningStyle.Render("⚠️"),
					cli.InfoStyle.Render(checkpointID))
				fmt.Printf("  Created: %s\n", info.CreatedAt.Format("2006-01-02 15:04:05"))
				if info.Description != "" {
					fmt.Printf("  Description: %s\n", info.Description)
				}
				fmt.Printf("\nContinue? (y/N) ")

				var response string
				_, _ = fmt.Scanln(&response)
				if !strings.HasPrefix(strings.ToLower(response), "y") {
					fmt.Println(cli.SubtitleStyle.Render("Restore cancelled."))
					return nil
				}
			}

			if err := manager.Restore(ctx, checkpointID); err != nil {
				return fmt.Errorf("failed to restore checkpoint: %w", err)
			}

			fmt.Printf("%s Restored from checkpoint %s\n",
				cli.SuccessStyle.Render("✓"),
				cli.InfoStyle.Render(checkpointID))

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func deleteCheckpointCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <checkpoint-id>",
		Short: "Delete a checkpoint",
		Long:  `Permanently remove a checkpoint.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			checkpointID := args[0]

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			manager, err := store.NewCheckpointManager()
			if err != nil {
				return fmt.Errorf("failed to create checkpoint manager: %w", err)
			}

			info, err := findCheckpoint(ctx, manager, checkpointID)
			if err != nil {
				return err
			}

			if !force {
				fmt.Printf("%s This will permanently delete checkpoint %s.\n",
					cli.WarningStyle.Render("⚠️"),
					cli.InfoStyle.Render(checkpointID))
				fmt.Printf("  Created: %s\n", info.CreatedAt.Format("2006-01-02 15:04:05"))
				fmt.Printf("  Size: %s\n", formatFileSize(info.FileSize))
				fmt.Printf("\nContinue? (y/N) ")

				var response string
				_, _ = fmt.Scanln(&response)
				if !strings.HasPrefix(strings.ToLower(response), "y") {
					fmt.Println(cli.SubtitleStyle.Render("Deletion cancelled."))
					return nil
				}
			}

			if err := manager.Delete(ctx, checkpointID); err != nil {
				return fmt.Errorf("failed to delete checkpoint: %w", err)
			}

			fmt.Printf("%s Deleted checkpoint %s\n",
				cli.SuccessStyle.Render("✓"),
				cli.InfoStyle.Render(checkpointID))

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

// Helper functions

func findCheckpoint(ctx context.Context, manager *storage.CheckpointManager, id string) (*storage.CheckpointInfo, error) {
	checkpoints, err := manager.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	for i := range checkpoints {
		if checkpoints[i].ID == id {
			return &checkpoints[i], nil
		}
	}
	return nil, storage.ErrCheckpointNotFound
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatRelativeTime(t time.Time) string {
	duration := time.Since(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	case duration < 24*time.Hour:
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case duration < 7*24*time.Hour:
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}

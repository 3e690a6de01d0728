// Package render turns annotated category traversals into nested output:
// HTML lists for templates and styled text trees for the terminal.
package render

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/arborlore/arbor/internal/tree"
)

var (
	nameStyle  = lipgloss.NewStyle().Bold(true)
	slugStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	guideStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
)

// HTML writes the traversal as a nested unordered list. Each item opens a
// sub-list when the node has children in the traversal; CloseCount says how
// many nested groups end after the node, so every opened tag is closed
// exactly once.
func HTML(w io.Writer, items []tree.Annotated) error {
	if len(items) == 0 {
		return nil
	}

	if _, err := io.WriteString(w, "<ul>\n"); err != nil {
		return err
	}
	for _, item := range items {
		label := html.EscapeString(item.Category.Name)
		if item.Info.HasChildren {
			if _, err := fmt.Fprintf(w, "<li>%s\n<ul>\n", label); err != nil {
				return err
			}
		} else {
			if _, err := fmt.Fprintf(w, "<li>%s</li>\n", label); err != nil {
				return err
			}
		}
		for i := 0; i < item.Info.CloseCount; i++ {
			if _, err := io.WriteString(w, "</ul>\n</li>\n"); err != nil {
				return err
			}
		}
	}
	_, err := io.WriteString(w, "</ul>\n")
	return err
}

// Text writes the traversal as an indented tree for terminal display. The
// indent of each line follows the node's depth relative to the traversal
// start.
func Text(w io.Writer, items []tree.Annotated) error {
	if len(items) == 0 {
		return nil
	}

	startDepth := items[0].Category.Depth
	for _, item := range items {
		indent := strings.Repeat("  ", item.Category.Depth-startDepth)
		guide := guideStyle.Render("├─")
		line := fmt.Sprintf("%s%s %s %s (%d)\n",
			indent,
			guide,
			nameStyle.Render(item.Category.Name),
			slugStyle.Render(item.Category.Slug),
			item.Category.ID,
		)
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}

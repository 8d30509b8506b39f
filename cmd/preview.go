package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"linkparser/internal/media"
	"linkparser/internal/preview"
)

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			MaxWidth(100)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func previewRun(cmd *cobra.Command, args []string) error {
	p, err := preview.New(cfg, logger)
	if err != nil {
		return err
	}

	debugf("previewing %s", args[0])
	res := p.Preview(args[0])

	// JSON output mode, also used when stdout is not a terminal
	if flagJSON || !term.IsTerminal(int(os.Stdout.Fd())) {
		return writeJSON(os.Stdout, res)
	}

	fmt.Fprintln(os.Stdout, renderCard(args[0], res))
	return nil
}

func writeJSON(w io.Writer, res media.PreviewResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(res)
}

// renderCard formats a preview for the terminal.
func renderCard(url string, res media.PreviewResult) string {
	var b strings.Builder

	title := res.Title
	if title == "" {
		title = url
	}
	b.WriteString(titleStyle.Render(title))

	if res.Description != "" {
		b.WriteString("\n" + res.Description)
	}

	kind := res.Type.String()
	if res.Hosting != "" {
		kind += " (" + res.Hosting + ")"
	}
	b.WriteString("\n\n" + labelStyle.Render("type   ") + kind)

	if res.ImageSrc != "" {
		b.WriteString("\n" + labelStyle.Render("image  ") + res.ImageSrc)
	}

	keys := make([]string, 0, len(res.Errors))
	for k := range res.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("\n" + errStyle.Render(k+": "+res.Errors[k]))
	}

	return cardStyle.Render(b.String())
}

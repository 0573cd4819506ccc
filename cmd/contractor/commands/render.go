package commands

import (
	"fmt"
	"html/template"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-contractor/internal/markdown"
)

func renderCmd() *cobra.Command {
	var withTitle bool

	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Render a Markdown file to HTML on stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			fm, body, err := markdown.ParseFrontMatter(source)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			html, err := markdown.NewRenderer(markdown.Options{}).Render(body)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if withTitle && fm.Title != "" {
				fmt.Fprintf(out, "<h1>%s</h1>\n", template.HTMLEscapeString(fm.Title))
			}
			_, err = out.Write(html)
			return err
		},
	}

	cmd.Flags().BoolVar(&withTitle, "title", false, "prepend the front matter title as a heading")
	return cmd
}

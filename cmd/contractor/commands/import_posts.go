package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	handlers "github.com/goliatone/go-contractor/internal/commands"
	blogcmd "github.com/goliatone/go-contractor/internal/commands/blog"
)

func importPostsCmd(global *globalOptions) *cobra.Command {
	var (
		contentDir string
		dir        string
		author     string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "import-posts",
		Short: "Import Markdown posts into the blog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := global.bootstrap()
			opts.EnableBlog = true
			opts.ContentDir = contentDir

			module, err := moduleBuilder(opts)
			if err != nil {
				return err
			}
			defer module.Module.Close(cmd.Context())

			handler := module.Container.ImportPostsHandler()
			if handler == nil {
				return handlers.FeatureDisabled("blog")
			}
			msg := blogcmd.ImportPostsCommand{Directory: dir, Author: author, DryRun: dryRun}
			if err := handler.Execute(cmd.Context(), msg); err != nil {
				return err
			}

			result := handler.Last()
			out := cmd.OutOrStdout()
			if result.DryRun {
				fmt.Fprintln(out, "dry run: no posts were written")
			}
			fmt.Fprintf(out, "created %d, updated %d, unchanged %d, scheduled %d\n",
				len(result.Created), len(result.Updated), len(result.Unchanged), len(result.Scheduled))
			for _, issue := range result.Issues {
				fmt.Fprintf(out, "issue: %s: %s\n", issue.Path, issue.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&contentDir, "content-dir", "", "root of the Markdown tree (overrides blog.content_dir)")
	cmd.Flags().StringVar(&dir, "dir", "", "subdirectory to import, relative to the content root")
	cmd.Flags().StringVar(&author, "author", "", "default author for posts without one")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report changes without writing")
	return cmd
}

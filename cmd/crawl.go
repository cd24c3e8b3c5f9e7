package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitecrawler/internal/crawler"
)

// newCrawlCmd creates the 'crawl' subcommand, which crawls one URL and prints the
// resulting record as JSON.
func newCrawlCmd() *cobra.Command {
	var (
		tags      []string
		languages []string
	)
	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Crawl one URL and print the enriched record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			res, err := appInstance.Crawl(cmd.Context(), crawler.Request{
				URL:       args[0],
				Tags:      tags,
				Languages: languages,
			})
			if err != nil {
				return fmt.Errorf("crawl %s: %w", args[0], err)
			}
			appInstance.Logger().Info("crawl command finished", zap.String("name", res.Name))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("write result: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "candidate tags the model may select from")
	cmd.Flags().StringSliceVar(&languages, "languages", nil, "language codes to translate into (default from config)")
	return cmd
}

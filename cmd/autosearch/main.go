// Command autosearch runs the web search pipeline: serve exposes it over
// HTTP, search runs it once from the shell.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/OpenChatGit/autosearch/config"
	"github.com/OpenChatGit/autosearch/internal/autosearch"
	"github.com/OpenChatGit/autosearch/internal/formatter"
	"github.com/OpenChatGit/autosearch/internal/server"
)

func main() {
	var root = &cobra.Command{Use: "autosearch", SilenceUsage: true}

	var cfgPath string
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./config.json)")

	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.Run(ctx, cfg)
		},
	}

	var formatName string
	var maxResults int
	var search = &cobra.Command{
		Use:   "search <query>",
		Short: "Run one search and print the rendered context",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			name := cfg.Search.OutputFormat
			if formatName != "" {
				name = formatName
			}
			format, err := formatter.ParseFormat(name)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			m, err := server.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer m.Orchestrator().Close()

			sc := m.PerformSearch(ctx, strings.Join(args, " "), &autosearch.SearchOptions{MaxResults: maxResults})
			out, err := formatter.Render(sc, format)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
	search.Flags().StringVar(&formatName, "format", "", "output format (verbose|compact|json)")
	search.Flags().IntVar(&maxResults, "max", 0, "maximum search results (0 = configured default)")

	root.AddCommand(serve, search)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

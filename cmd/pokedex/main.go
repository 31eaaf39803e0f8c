package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/agentuity/pokedex/catalog"
	"github.com/agentuity/pokedex/env"
	"github.com/agentuity/pokedex/logger"
	"github.com/agentuity/pokedex/pokeapi"
	"github.com/agentuity/pokedex/server"
	"github.com/agentuity/pokedex/sys"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

// app is the service wiring shared by every subcommand.
type app struct {
	logger  logger.Logger
	service *catalog.Service
	caches  *catalog.Caches
	listen  string
}

func newApp(cmd *cobra.Command) (*app, error) {
	log := env.NewLogger(cmd)
	cfg, err := env.LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	caches, err := catalog.NewCaches(cmd.Context(), cfg.Backend(), nil)
	if err != nil {
		return nil, err
	}
	client := pokeapi.New(log, cfg.Upstream.BaseURL, pokeapi.WithTimeout(time.Duration(cfg.Upstream.Timeout)))
	log.Debug("using %s cache backend against %s", cfg.Backend(), cfg.Upstream.BaseURL)
	return &app{
		logger:  log,
		service: catalog.New(log, client, caches, cfg.CatalogOptions()),
		caches:  caches,
		listen:  cfg.Server.Listen,
	}, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.caches.Close(ctx); err != nil {
		a.logger.Warn("error closing caches: %s", err)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// run builds the app, runs fn and closes the app again.
func run(fn func(cmd *cobra.Command, args []string, a *app) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())
		return fn(cmd, args, a)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pokedex",
		Short:         "Cached catalog of PokeAPI species",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       pokeapi.Version,
	}
	env.AddFlags(rootCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog JSON API",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, _ []string, a *app) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go func() {
				select {
				case <-sys.CreateShutdownChannel():
					a.logger.Info("shutting down")
					cancel()
				case <-ctx.Done():
				}
			}()
			return server.New(a.logger, a.service).Run(ctx, a.listen)
		}),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "categories",
		Short: "Print the category list, starting with \"all\"",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, _ []string, a *app) error {
			types, err := a.service.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, types)
		}),
	})

	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Print one catalog page",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, _ []string, a *app) error {
			q := catalog.Query{}
			q.Search, _ = cmd.Flags().GetString("search")
			q.Category, _ = cmd.Flags().GetString("type")
			q.Sort, _ = cmd.Flags().GetString("sort")
			q.Page, _ = cmd.Flags().GetInt("page")
			page, err := a.service.QueryPage(cmd.Context(), q)
			if err != nil {
				return err
			}
			return printJSON(cmd, page)
		}),
	}
	queryCmd.Flags().StringP("search", "q", "", "name substring")
	queryCmd.Flags().StringP("type", "t", catalog.AllCategories, "category")
	queryCmd.Flags().StringP("sort", "s", string(catalog.DefaultSort), "id-asc, id-desc, name-asc or name-desc")
	queryCmd.Flags().IntP("page", "p", 1, "page number")
	rootCmd.AddCommand(queryCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "detail <name-or-id>",
		Short: "Print the detail record of one pokemon",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, args []string, a *app) error {
			rec, err := a.service.SpeciesDetail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		}),
	})

	return rootCmd
}

// exitCode maps an error onto the process exit status. Errors that did not
// come from the catalog, such as bad flags or config, exit with 1.
func exitCode(err error) int {
	var ce *catalog.Error
	if !errors.As(err, &ce) {
		return 1
	}
	switch ce.Kind {
	case catalog.KindInvalidArgument:
		return 2
	case catalog.KindNotFound:
		return 3
	case catalog.KindUnavailable:
		return 4
	}
	return 1
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sumitghosal/zaika/app/controllers"
	"github.com/sumitghosal/zaika/app/repositories"
	"github.com/sumitghosal/zaika/app/routes"
	"github.com/sumitghosal/zaika/config"
	"github.com/sumitghosal/zaika/database/seeders"
	"github.com/sumitghosal/zaika/internal/server"
	"github.com/sumitghosal/zaika/pkg/mongodb"
	"github.com/sumitghosal/zaika/pkg/router"
)

func main() {
	root := &cobra.Command{
		Use:   "zaika",
		Short: "Zaika cart service",
	}
	root.AddCommand(serveCmd(), seedCmd(), dbIndexCmd(), routeListCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(_ *cobra.Command, _ []string) error {
			return server.Start()
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo catalog (foods and add-ons)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMongo(cmd.Context(), seeders.Run)
		},
	}
}

func dbIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "db:index",
		Short: "Create MongoDB indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMongo(cmd.Context(), func(ctx context.Context) error {
				return repositories.NewCartRepository(mongodb.Collection("carts")).EnsureIndexes(ctx)
			})
		},
	}
}

func routeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route:list",
		Short: "Print the registered routes",
		RunE: func(_ *cobra.Command, _ []string) error {
			r := router.New()
			routes.RegisterAPI(r, controllers.NewCartController(nil))
			for _, rt := range r.Routes() {
				fmt.Printf("%-7s %-40s %s\n", rt.Method, rt.Path, rt.Name)
			}
			return nil
		},
	}
}

// withMongo runs fn against a connected Mongo client with a bounded deadline.
func withMongo(parent context.Context, fn func(context.Context) error) error {
	if err := config.Load(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()
	if err := mongodb.Connect(ctx); err != nil {
		return err
	}
	defer mongodb.Disconnect(context.Background()) //nolint:errcheck
	return fn(ctx)
}

package main

import (
	"context"
	"fmt"
	"os"

	"branchdesk-server/internal/config"
	"branchdesk-server/internal/repository"
	"branchdesk-server/internal/service"

	"github.com/spf13/cobra"
)

var storeDriver string

var rootCmd = &cobra.Command{
	Use:           "branchctl",
	Short:         "Administrative tasks for a Branchdesk store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "Store driver override: couch or memory")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openData builds a DataService against the configured store. The caller
// must close the returned stores.
func openData(ctx context.Context) (*config.Config, *service.DataService, *repository.Stores, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	driver := cfg.Storage.Driver
	if storeDriver != "" {
		driver = storeDriver
	}

	var stores *repository.Stores
	switch driver {
	case "memory":
		stores = repository.OpenMemory(cfg.Storage.PublicBaseURL)
	case "couch":
		stores, err = repository.OpenCouch(ctx, cfg.Database.URL(), cfg.Database.Name, false, cfg.Database.ReconnectDelay, cfg.Storage.PublicBaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open store: %w", err)
		}
	default:
		return nil, nil, nil, fmt.Errorf("unknown store driver %q", driver)
	}

	return cfg, service.NewDataService(stores.Gateway, stores.Objects, cfg.Catalog.StockSource), stores, nil
}

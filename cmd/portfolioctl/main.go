package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/portfolio/backend/internal/config"
	"github.com/portfolio/backend/internal/db"
	"github.com/portfolio/backend/internal/logger"
	"github.com/portfolio/backend/internal/services"
	"github.com/portfolio/backend/internal/storage"
)

var (
	cfg *config.Config

	boldGreen = color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan  = color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow    = color.New(color.FgYellow).SprintFunc()
	red       = color.New(color.FgRed).SprintFunc()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "portfolioctl",
	Short: "Operate the portfolio backend's storage, metadata and AI helpers",
	Long: `portfolioctl talks to the same bucket, database and model the server uses.

Configuration comes from the environment (and .env), exactly as for the server.`,
	SilenceUsage:      true,
	PersistentPreRunE: initialize,
}

func init() {
	rootCmd.AddCommand(storageCmd)
	rootCmd.AddCommand(imagesCmd)
	rootCmd.AddCommand(matchCmd)
}

func initialize(cmd *cobra.Command, args []string) error {
	logger.Initialize()
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, red("Error:"), err)
		os.Exit(1)
	}
}

func storageClient() (*storage.Client, error) {
	return storage.New(cfg.Storage())
}

func database() (*gorm.DB, error) {
	return db.Connect(cfg.DatabaseURL)
}

func imageStore() (services.ImageStore, error) {
	conn, err := database()
	if err != nil {
		return nil, err
	}
	return services.NewGormImageStore(conn), nil
}

// Command indexctl inspects and maintains a page file offline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/logger"
)

var (
	cfgFile   string
	indexPath string
	cfg       *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "indexctl",
	Short:         "indexctl inspects and maintains a tinyindex page file",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if indexPath != "" {
			loaded.Index.Path = indexPath
		}
		cfg = loaded
		logger.Setup(cfg.Logging)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&indexPath, "index", "", "index file, overrides index.path")
	rootCmd.AddCommand(
		createCmd,
		pageCmd,
		retrieveCmd,
		repairTermsCmd,
		copyPagesCmd,
		indexFileCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

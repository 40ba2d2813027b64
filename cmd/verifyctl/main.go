// Command verifyctl runs operational tasks against the verification stores.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/liquidation-verify-api/pkg/config"
	"github.com/noah-isme/liquidation-verify-api/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "verifyctl",
	Short:         "Operations tooling for the liquidation verification API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(draftsCmd, liquidationsCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and a logger shared by every subcommand.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logr, nil
}

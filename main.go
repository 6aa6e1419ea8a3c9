package main

import (
	"fmt"
	"net"
	"os"

	"github.com/kartoza/carbon-footprint/internal/config"
	"github.com/kartoza/carbon-footprint/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

// app carries state shared by the subcommands
type app struct {
	configPath string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "footprint",
		Short: "Carbon footprint calculator, chatbot and classifier services",
		Long: `footprint serves the carbon footprint calculator API, passes questions to a
hosted language model and describes the multispectral ResNet classifier.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(a.verbose)
			if err != nil {
				return err
			}
			a.logger = logger
			zap.ReplaceGlobals(logger)

			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			cfg.Version = version
			a.cfg = cfg
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newServeCmd(a),
		newAskCmd(a),
		newTipsCmd(a),
		newPredictCmd(a),
		newTrainCmd(a),
		newResNetCmd(a),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// no config or logger needed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "footprint v%s\n", version)
		},
	}
}

// findAvailablePort finds an available port, starting from the given port.
// If the port is in use, it tries subsequent ports up to maxAttempts times.
func findAvailablePort(startPort int, maxAttempts int) (int, error) {
	for i := 0; i < maxAttempts; i++ {
		port := startPort + i
		addr := fmt.Sprintf(":%d", port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port found after %d attempts starting from %d", maxAttempts, startPort)
}

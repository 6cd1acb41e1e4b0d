package cli

import (
	"context"

	"github.com/containerd/log"
	"github.com/kolah/sdkprep/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sdkprep",
		Short:         "sdkprep - prepares OpenAPI documents for SDK generators",
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	config.BindCommonFlags(root)
	root.AddCommand(NormalizeCommand(), CheckCommand())

	return root
}

// logContext returns the command context carrying a logger that writes to
// the command's stderr at the configured level.
func logContext(cmd *cobra.Command, cfg *config.Config) context.Context {
	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return log.WithLogger(ctx, logrus.NewEntry(logger))
}

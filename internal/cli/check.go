package cli

import (
	"fmt"

	"github.com/kolah/sdkprep/internal/config"
	"github.com/kolah/sdkprep/internal/passes"
	"github.com/spf13/cobra"
)

func CheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run the configured guards without rewriting anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd)
			if err != nil {
				return err
			}
			ctx := logContext(cmd, cfg)

			doc, err := loadDocument(ctx, cfg)
			if err != nil {
				return err
			}

			guard := &passes.GuardCheck{Guards: guards(cfg)}
			if _, err := guard.Apply(ctx, doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d guards passed\n", len(cfg.Guards))
			return nil
		},
	}
}

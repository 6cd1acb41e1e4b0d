package cli

import (
	"context"
	"fmt"

	"github.com/containerd/log"
	"github.com/kolah/sdkprep/internal/config"
	"github.com/kolah/sdkprep/internal/loader"
	"github.com/kolah/sdkprep/internal/model"
	"github.com/kolah/sdkprep/internal/passes"
	"github.com/spf13/cobra"
)

func NormalizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Run the normalization pipeline and write the SDK-ready document",
		Args:  cobra.NoArgs,
		RunE:  runNormalize,
	}

	flags := cmd.Flags()
	flags.StringP("output", "o", "", "Output file (default: <input stem>.sdk.json)")
	flags.Bool("dry-run", false, "Run every pass but do not write the output")
	flags.String("base-url", "", "Documentation base URL for description links")
	flags.Int("width", 0, "Description wrap width (default: 100)")

	return cmd
}

func runNormalize(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}
	ctx := logContext(cmd, cfg)
	for _, w := range cfg.Warnings() {
		log.G(ctx).Warn(w)
	}

	doc, err := loadDocument(ctx, cfg)
	if err != nil {
		return err
	}

	opts, err := pipelineOptions(cfg)
	if err != nil {
		return err
	}

	cmd.PrintErrf("Normalizing %s\n", cfg.Input)
	_, err = passes.New(opts).Run(ctx, doc, func(r passes.Result) {
		cmd.PrintErrf("  %-24s %d\n", r.Name, r.Changes)
	})
	if err != nil {
		return err
	}

	data, err := loader.Marshal(doc, saveOptions(cfg))
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	if cfg.DryRun {
		cmd.PrintErrln("Dry run: output not written")
	} else {
		out := cfg.OutputPath()
		if err := loader.WriteFile(out, data); err != nil {
			return err
		}
		cmd.PrintErrf("Written: %s\n", out)
	}

	summary, err := loader.Summarize(data)
	if err != nil {
		return fmt.Errorf("reading back output: %w", err)
	}
	printSummary(cmd, summary)
	return nil
}

func loadDocument(ctx context.Context, cfg *config.Config) (*model.Document, error) {
	fixups := make([]loader.Fixup, 0, len(cfg.Fixups))
	for _, f := range cfg.Fixups {
		fixups = append(fixups, loader.Fixup{From: f.From, To: f.To})
	}

	result, err := loader.LoadFile(cfg.Input, fixups...)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", cfg.Input, err)
	}
	for _, w := range result.Warnings {
		log.G(ctx).Warn(w)
	}
	return result.Document, nil
}

// pipelineOptions translates the config into pass options, reading patch
// fragments from disk.
func pipelineOptions(cfg *config.Config) (passes.Options, error) {
	opts := passes.Options{
		Guards:             guards(cfg),
		Acronyms:           cfg.Naming.Acronyms,
		InternalPrefixes:   cfg.Internal.PathPrefixes,
		OperationRenames:   cfg.Internal.OperationRenames,
		PaginationMetaKeys: cfg.ReturnTypes.PaginationMetaKeys,
		DocsBaseURL:        cfg.Descriptions.BaseURL,
		Width:              cfg.Descriptions.Width,
		ParameterWidth:     cfg.Descriptions.ParameterWidth,
	}

	for _, group := range cfg.RouteVariants {
		opts.VariantGroups = append(opts.VariantGroups, passes.VariantGroup(group))
	}

	for _, p := range cfg.Patches.Add {
		fragment, err := loader.LoadFragment(p.File)
		if err != nil {
			return opts, fmt.Errorf("loading patch for %s: %w", p.Path, err)
		}
		opts.Patches = append(opts.Patches, passes.Patch{
			Path:     p.Path,
			Method:   model.ParseMethod(p.Method),
			Fragment: fragment,
		})
	}
	for _, r := range cfg.Patches.Remove {
		opts.Removals = append(opts.Removals, passes.Removal{Path: r.Path, Method: model.ParseMethod(r.Method)})
	}

	return opts, nil
}

func guards(cfg *config.Config) []passes.Guard {
	out := make([]passes.Guard, 0, len(cfg.Guards))
	for _, g := range cfg.Guards {
		out = append(out, passes.Guard{Name: g.Name, Query: g.Query, Function: g.Function, Message: g.Message})
	}
	return out
}

func saveOptions(cfg *config.Config) loader.SaveOptions {
	return loader.SaveOptions{
		EmptyArrayKeys: cfg.Serializer.EmptyArrayKeys,
		Indent:         cfg.Serializer.Indent,
	}
}

func printSummary(cmd *cobra.Command, s *loader.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Normalized OpenAPI %s: %s v%s\n", s.OpenAPI, s.Title, s.APIVersion)
	fmt.Fprintf(out, "  Schemas: %d\n", s.Schemas)
	fmt.Fprintf(out, "  Operations: %d (%d annotated)\n", s.Operations, s.Annotated)
	for _, id := range s.MissingIDs {
		cmd.PrintErrf("Warning: %s has no operationId\n", id)
	}
}

// Package passes rewrites an OpenAPI document in place so SDK generators can
// consume it. Passes run in a fixed order over one shared tree; later passes
// rely on shapes established by earlier ones.
package passes

import (
	"context"
	"fmt"
	"maps"

	"github.com/containerd/log"
	"github.com/kolah/sdkprep/internal/model"
	"github.com/kolah/sdkprep/internal/naming"
)

// Pass is one normalization step. Apply returns the number of changes made.
type Pass interface {
	Name() string
	Apply(ctx context.Context, doc *model.Document) (int, error)
}

type Result struct {
	Name    string
	Changes int
}

// Options carries everything the standard pipeline needs.
type Options struct {
	Guards             []Guard
	Acronyms           map[string]string
	VariantGroups      []VariantGroup
	Patches            []Patch
	Removals           []Removal
	InternalPrefixes   []string
	OperationRenames   map[string]string
	PaginationMetaKeys []string
	DocsBaseURL        string
	Width              int
	ParameterWidth     int
}

type Pipeline struct {
	passes []Pass
}

// New builds the standard pipeline in its fixed order.
func New(opts Options) *Pipeline {
	acronyms := opts.Acronyms
	if acronyms == nil {
		acronyms = naming.DefaultAcronyms
	}
	names := naming.NewCanonicalizer(acronyms)

	return &Pipeline{passes: []Pass{
		&GuardCheck{Guards: opts.Guards},
		RefNormalizer{},
		&SchemaRenamer{Names: names},
		&TagRenamer{Names: names},
		&NullabilityPropagator{Groups: opts.VariantGroups},
		DateTimeFlagger{},
		&RequiredCleaner{Groups: opts.VariantGroups},
		&PathPatcher{Add: opts.Patches, Remove: opts.Removals},
		ParameterCleaner{},
		ResponseFiller{},
		NullableRefFixer{},
		&OperationRenamer{InternalPrefixes: opts.InternalPrefixes, Renames: opts.OperationRenames},
		&ReturnTypeAnnotator{MetaKeys: opts.PaginationMetaKeys},
		&DescriptionFormatter{BaseURL: opts.DocsBaseURL, Width: opts.Width, ParameterWidth: opts.ParameterWidth},
		DiscriminatorDeduper{},
	}}
}

// NewPipeline runs an explicit list of passes.
func NewPipeline(passes ...Pass) *Pipeline {
	return &Pipeline{passes: passes}
}

func (p *Pipeline) Passes() []Pass {
	return p.passes
}

// Run applies every pass in order. The first error stops the run; the
// document may then be partially rewritten and must not be saved.
func (p *Pipeline) Run(ctx context.Context, doc *model.Document, progress func(Result)) ([]Result, error) {
	results := make([]Result, 0, len(p.passes))
	for _, pass := range p.passes {
		ctx := log.WithLogger(ctx, log.G(ctx).WithField("pass", pass.Name()))

		n, err := pass.Apply(ctx, doc)
		if err != nil {
			return results, fmt.Errorf("%s: %w", pass.Name(), err)
		}

		r := Result{Name: pass.Name(), Changes: n}
		log.G(ctx).WithField("changes", n).Debug("pass complete")
		results = append(results, r)
		if progress != nil {
			progress(r)
		}
	}
	return results, nil
}

// softSkip records a missing bucket. Skips never fail a run.
func softSkip(ctx context.Context, fields log.Fields, msg string) {
	f := log.Fields{"skip": true}
	maps.Copy(f, fields)
	log.G(ctx).WithFields(f).Info(msg)
}

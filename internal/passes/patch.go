package passes

import (
	"context"

	"github.com/containerd/log"
	"github.com/kolah/sdkprep/internal/model"
	"go.yaml.in/yaml/v4"
)

// Patch inserts a hand-authored fragment. With a Method the fragment is an
// operation; without one it is a whole path item.
type Patch struct {
	Path     string
	Method   model.Method
	Fragment *yaml.Node
}

type Removal struct {
	Path   string
	Method model.Method
}

// PathPatcher adds and removes operations. Existing entries are never
// overwritten, so applying the same patches twice changes nothing.
type PathPatcher struct {
	Add    []Patch
	Remove []Removal
}

func (*PathPatcher) Name() string { return "patch-paths" }

func (p *PathPatcher) Apply(ctx context.Context, doc *model.Document) (int, error) {
	if len(p.Add) == 0 && len(p.Remove) == 0 {
		return 0, nil
	}

	count := 0
	paths := doc.Ensure("paths")

	for _, patch := range p.Add {
		fields := log.Fields{"path": patch.Path, "method": patch.Method}
		if patch.Method == "" {
			if model.Has(paths, patch.Path) {
				log.G(ctx).WithFields(fields).Debug("path already present")
				continue
			}
			model.Set(paths, patch.Path, model.Clone(patch.Fragment))
			log.G(ctx).WithFields(fields).Info("added path")
			count++
			continue
		}

		item := model.Get(paths, patch.Path)
		if !model.IsMapping(item) {
			item = model.NewMapping()
			model.Set(paths, patch.Path, item)
		}
		if model.Has(item, string(patch.Method)) {
			log.G(ctx).WithFields(fields).Debug("operation already present")
			continue
		}
		model.Set(item, string(patch.Method), model.Clone(patch.Fragment))
		log.G(ctx).WithFields(fields).Info("added operation")
		count++
	}

	for _, rm := range p.Remove {
		fields := log.Fields{"path": rm.Path, "method": rm.Method}
		item := model.Get(paths, rm.Path)
		if item == nil {
			softSkip(ctx, fields, "path to remove not found")
			continue
		}
		if !model.Delete(item, string(rm.Method)) {
			continue
		}
		count++
		log.G(ctx).WithFields(fields).Info("removed operation")
		if !model.HasOperations(item) {
			model.Delete(paths, rm.Path)
		}
	}

	return count, nil
}

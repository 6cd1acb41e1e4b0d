package passes

import (
	"context"
	"strings"

	"github.com/containerd/log"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/kolah/sdkprep/internal/model"
	"go.yaml.in/yaml/v4"
)

// deprecatedSuffix is appended to the operationId of a deprecated operation
// that shares its id with a live one.
const deprecatedSuffix = "Deprecated"

// OperationRenamer flags internal operations and resolves operationId
// renames and clashes.
type OperationRenamer struct {
	InternalPrefixes []string
	Renames          map[string]string
}

func (*OperationRenamer) Name() string { return "rename-operations" }

func (r *OperationRenamer) Apply(ctx context.Context, doc *model.Document) (int, error) {
	count := 0
	ops := doc.Operations()

	for _, op := range ops {
		if r.internal(op.Path) && !model.BoolValue(model.Get(op.Node, "x-internal")) {
			model.Set(op.Node, "x-internal", model.NewBool(true))
			count++
		}
		if to, ok := r.Renames[op.ID()]; ok {
			model.Set(op.Node, "operationId", model.NewString(to))
			log.G(ctx).WithFields(log.Fields{"operation": op.String(), "operationId": to}).Info("renamed operation")
			count++
		}
	}

	if len(r.Renames) > 0 {
		count += r.renameLinks(doc.Root)
	}

	live := mapset.NewThreadUnsafeSet[string]()
	for _, op := range ops {
		if !op.Deprecated() && op.ID() != "" {
			live.Add(op.ID())
		}
	}
	for _, op := range ops {
		id := op.ID()
		if !op.Deprecated() || !live.Contains(id) {
			continue
		}
		model.Set(op.Node, "operationId", model.NewString(id+deprecatedSuffix))
		log.G(ctx).WithField("operation", op.String()).Info("suffixed deprecated duplicate operationId")
		count++
	}

	return count, nil
}

func (r *OperationRenamer) internal(path string) bool {
	for _, prefix := range r.InternalPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// renameLinks rewrites operationId in every link object.
func (r *OperationRenamer) renameLinks(root *yaml.Node) int {
	count := 0
	model.Walk(root, func(path []string, n *yaml.Node) bool {
		if len(path) < 2 || path[len(path)-2] != "links" || !model.IsMapping(n) {
			return true
		}
		id := model.Get(n, "operationId")
		if id == nil {
			return true
		}
		if to, ok := r.Renames[id.Value]; ok {
			id.Value = to
			count++
		}
		return true
	})
	return count
}

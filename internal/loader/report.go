package loader

import (
	"fmt"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/kolah/sdkprep/internal/model"
	"github.com/pb33f/libopenapi"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
)

// Summary describes a normalized document as a generator would see it.
type Summary struct {
	Title      string
	APIVersion string
	OpenAPI    string
	Paths      int
	Operations int
	Schemas    int
	Methods    map[model.Method]int
	// Annotated counts operations carrying x-return-types.
	Annotated int
	// MissingIDs lists operations without an operationId, as "GET /path".
	MissingIDs []string
}

// Summarize re-parses serialized output with the full OpenAPI model, which
// also proves the output is loadable by libopenapi based generators.
func Summarize(data []byte) (*Summary, error) {
	doc, err := libopenapi.NewDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing output: %v", cerrdefs.ErrInvalidArgument, err)
	}
	v3doc, err := doc.BuildV3Model()
	if err != nil {
		return nil, fmt.Errorf("%w: building OpenAPI model: %v", cerrdefs.ErrInvalidArgument, err)
	}

	m := v3doc.Model
	s := &Summary{
		OpenAPI: doc.GetVersion(),
		Methods: make(map[model.Method]int),
	}
	if m.Info != nil {
		s.Title = m.Info.Title
		s.APIVersion = m.Info.Version
	}
	if m.Components != nil && m.Components.Schemas != nil {
		for range m.Components.Schemas.FromOldest() {
			s.Schemas++
		}
	}
	if m.Paths == nil || m.Paths.PathItems == nil {
		return s, nil
	}

	for path, item := range m.Paths.PathItems.FromOldest() {
		s.Paths++
		methods := []struct {
			method model.Method
			op     *v3.Operation
		}{
			{model.MethodGet, item.Get},
			{model.MethodPut, item.Put},
			{model.MethodPost, item.Post},
			{model.MethodDelete, item.Delete},
			{model.MethodOptions, item.Options},
			{model.MethodHead, item.Head},
			{model.MethodPatch, item.Patch},
			{model.MethodTrace, item.Trace},
		}
		for _, entry := range methods {
			if entry.op == nil {
				continue
			}
			s.Operations++
			s.Methods[entry.method]++
			if entry.op.OperationId == "" {
				s.MissingIDs = append(s.MissingIDs, model.Operation{Path: path, Method: entry.method}.String())
			}
			if entry.op.Extensions != nil {
				if _, ok := entry.op.Extensions.Get("x-return-types"); ok {
					s.Annotated++
				}
			}
		}
	}

	return s, nil
}

package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/kolah/sdkprep/internal/model"
	"github.com/pb33f/libopenapi"
	"go.yaml.in/yaml/v4"
)

// Fixup is a literal replacement applied to the raw input before parsing.
type Fixup struct {
	From string
	To   string
}

type Result struct {
	Document *model.Document
	Version  string
	Warnings []string
	RawData  []byte
}

func LoadFile(path string, fixups ...Fixup) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: reading spec file: %v", cerrdefs.ErrNotFound, err)
		}
		return nil, fmt.Errorf("%w: reading spec file: %v", cerrdefs.ErrInvalidArgument, err)
	}
	return Load(data, fixups...)
}

// Load applies fixups, checks that data is an OpenAPI 3.x document and
// decodes it into an order-preserving tree.
func Load(data []byte, fixups ...Fixup) (*Result, error) {
	data = applyFixups(data, fixups)

	doc, err := libopenapi.NewDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing OpenAPI document: %v", cerrdefs.ErrInvalidArgument, err)
	}

	version := doc.GetVersion()
	if !strings.HasPrefix(version, "3.") {
		return nil, fmt.Errorf("%w: unsupported OpenAPI version: %q (only 3.x supported)", cerrdefs.ErrInvalidArgument, version)
	}

	// libopenapi already decoded the bytes; its tree keeps key order and
	// accepts every JSON escape.
	info := doc.GetSpecInfo()
	if info == nil || info.RootNode == nil {
		return nil, fmt.Errorf("%w: empty document", cerrdefs.ErrInvalidArgument)
	}
	tree, err := model.NewDocument(info.RootNode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cerrdefs.ErrInvalidArgument, err)
	}

	result := &Result{
		Document: tree,
		Version:  version,
		RawData:  data,
	}

	if !strings.HasPrefix(version, "3.0") {
		result.Warnings = append(result.Warnings, fmt.Sprintf("OpenAPI %s detected; nullable handling targets 3.0 semantics", version))
	}

	return result, nil
}

// LoadFragment reads a hand-authored JSON or YAML fragment.
func LoadFragment(path string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fragment: %w", err)
	}
	var n yaml.Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decoding fragment %s: %w", path, err)
	}
	if len(n.Content) == 0 || !model.IsMapping(n.Content[0]) {
		return nil, fmt.Errorf("fragment %s: expected an object", path)
	}
	return n.Content[0], nil
}

func applyFixups(data []byte, fixups []Fixup) []byte {
	for _, f := range fixups {
		if f.From == "" {
			continue
		}
		data = bytes.ReplaceAll(data, []byte(f.From), []byte(f.To))
	}
	return data
}

package passes

import (
	"context"
	"testing"

	"github.com/containerd/log"
	"github.com/kolah/sdkprep/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v4"
)

func load(t *testing.T, src string) *model.Document {
	t.Helper()
	var n yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &n))
	doc, err := model.NewDocument(&n)
	require.NoError(t, err)
	return doc
}

// testContext returns a context whose logger records every entry.
func testContext(t *testing.T) (context.Context, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return log.WithLogger(context.Background(), logrus.NewEntry(logger)), hook
}

func apply(t *testing.T, p Pass, doc *model.Document) int {
	t.Helper()
	ctx, _ := testContext(t)
	n, err := p.Apply(ctx, doc)
	require.NoError(t, err)
	return n
}

func decode(t *testing.T, n *yaml.Node) any {
	t.Helper()
	var v any
	require.NoError(t, n.Decode(&v))
	return v
}

// requireJSON compares a node with the value described by want.
func requireJSON(t *testing.T, want string, got *yaml.Node) {
	t.Helper()
	require.NotNil(t, got)
	var w any
	require.NoError(t, yaml.Unmarshal([]byte(want), &w))
	require.Equal(t, w, decode(t, got))
}

func lookup(t *testing.T, doc *model.Document, ptr string) *yaml.Node {
	t.Helper()
	n := doc.Lookup(ptr)
	require.NotNil(t, n, ptr)
	return n
}

func skips(hook *test.Hook) []string {
	var msgs []string
	for _, e := range hook.AllEntries() {
		if _, ok := e.Data["skip"]; ok {
			msgs = append(msgs, e.Message)
		}
	}
	return msgs
}

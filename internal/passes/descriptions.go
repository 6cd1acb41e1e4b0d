package passes

import (
	"context"
	"regexp"
	"strings"

	"github.com/kolah/sdkprep/internal/model"
	"github.com/mattn/go-runewidth"
	"go.yaml.in/yaml/v4"
)

const keyDescriptionLines = "x-description"

var (
	fragmentLink = regexp.MustCompile(`\[([^\]]*)\]\(#([^)]*)\)`)
	lineBreak    = regexp.MustCompile(`(?i)<br\s*/?>`)

	fragmentDecoder = strings.NewReplacer(
		"~1", "/",
		"~0", "~",
		"%7B", "{", "%7b", "{",
		"%7D", "}", "%7d", "}",
	)
)

// DescriptionFormatter stores wrapped, link-absolutized copies of
// descriptions under x-description. The description itself is kept.
type DescriptionFormatter struct {
	BaseURL        string
	Width          int
	ParameterWidth int
}

func (*DescriptionFormatter) Name() string { return "format-descriptions" }

func (f *DescriptionFormatter) Apply(_ context.Context, doc *model.Document) (int, error) {
	count := 0
	format := func(n *yaml.Node, width int) {
		if f.format(n, width) {
			count++
		}
	}

	for _, op := range doc.Operations() {
		format(op.Node, f.Width)
		eachParameter(model.Get(op.Node, "parameters"), func(p *yaml.Node) {
			format(p, f.ParameterWidth)
		})
	}
	for _, item := range model.Pairs(doc.Paths()) {
		eachParameter(model.Get(item, "parameters"), func(p *yaml.Node) {
			format(p, f.ParameterWidth)
		})
	}
	for _, p := range model.Pairs(model.GetPath(doc.Root, "components", "parameters")) {
		format(p, f.ParameterWidth)
	}
	eachComponentSchema(doc, func(n *yaml.Node) {
		format(n, f.Width)
	})

	return count, nil
}

func eachParameter(params *yaml.Node, visit func(*yaml.Node)) {
	if !model.IsSequence(params) {
		return
	}
	for _, p := range params.Content {
		if model.IsMapping(p) {
			visit(p)
		}
	}
}

func (f *DescriptionFormatter) format(n *yaml.Node, width int) bool {
	desc, ok := model.StringValue(model.Get(n, "description"))
	if !ok || strings.TrimSpace(desc) == "" {
		return false
	}
	lines := Wrap(f.Normalize(desc), width)
	model.Set(n, keyDescriptionLines, model.NewStrings(lines))
	return true
}

// Normalize absolutizes fragment links, turns <br> into spaces and
// collapses whitespace.
func (f *DescriptionFormatter) Normalize(text string) string {
	base := strings.TrimSuffix(f.BaseURL, "#")
	text = fragmentLink.ReplaceAllStringFunc(text, func(m string) string {
		sub := fragmentLink.FindStringSubmatch(m)
		return "[" + sub[1] + "](" + base + "#" + fragmentDecoder.Replace(sub[2]) + ")"
	})
	text = lineBreak.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// Wrap breaks text greedily into lines of at most width display columns.
// Words are never split; a word wider than width gets a line of its own.
func Wrap(text string, width int) []string {
	var lines []string
	var line strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		w := runewidth.StringWidth(word)
		if line.Len() > 0 && lineWidth+1+w > width {
			lines = append(lines, line.String())
			line.Reset()
			lineWidth = 0
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
			lineWidth++
		}
		line.WriteString(word)
		lineWidth += w
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}

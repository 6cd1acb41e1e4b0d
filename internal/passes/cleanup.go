package passes

import (
	"context"
	"net/http"
	"strconv"

	"github.com/kolah/sdkprep/internal/model"
	"go.yaml.in/yaml/v4"
)

// ParameterCleaner removes empty parameter lists and empty entries in them.
type ParameterCleaner struct{}

func (ParameterCleaner) Name() string { return "clean-parameters" }

func (ParameterCleaner) Apply(_ context.Context, doc *model.Document) (int, error) {
	count := 0
	for _, item := range model.Pairs(doc.Paths()) {
		count += cleanParameters(item)
	}
	for _, op := range doc.Operations() {
		count += cleanParameters(op.Node)
	}
	return count, nil
}

func cleanParameters(holder *yaml.Node) int {
	params := model.Get(holder, "parameters")
	if !model.IsSequence(params) {
		return 0
	}
	count := 0
	kept := params.Content[:0]
	for _, p := range params.Content {
		if model.IsEmpty(p) {
			count++
			continue
		}
		kept = append(kept, p)
	}
	params.Content = kept
	if len(kept) == 0 {
		model.Delete(holder, "parameters")
		count++
	}
	return count
}

// ResponseFiller gives empty responses a description, drops empty content
// maps and adds a default response to empty response maps.
type ResponseFiller struct{}

func (ResponseFiller) Name() string { return "fill-responses" }

func (ResponseFiller) Apply(_ context.Context, doc *model.Document) (int, error) {
	count := 0
	for _, op := range doc.Operations() {
		responses := op.Responses()
		if !model.IsMapping(responses) {
			continue
		}
		if model.Len(responses) == 0 {
			model.Set(responses, "default", describedResponse("default"))
			count++
			continue
		}
		for i := 1; i < len(responses.Content); i += 2 {
			code, resp := responses.Content[i-1].Value, responses.Content[i]
			if model.IsEmpty(resp) {
				responses.Content[i] = describedResponse(code)
				count++
				continue
			}
			if content := model.Get(resp, "content"); model.IsEmpty(content) {
				model.Delete(resp, "content")
				count++
			}
		}
	}
	return count, nil
}

func describedResponse(code string) *yaml.Node {
	text := "Default response"
	if status, err := strconv.Atoi(code); err == nil && http.StatusText(status) != "" {
		text = http.StatusText(status)
	}
	n := model.NewMapping()
	model.Set(n, "description", model.NewString(text))
	return n
}

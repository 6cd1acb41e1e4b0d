package model

import (
	"fmt"
	"strings"

	"go.yaml.in/yaml/v4"
)

type Method string

const (
	MethodGet     Method = "get"
	MethodPut     Method = "put"
	MethodPost    Method = "post"
	MethodDelete  Method = "delete"
	MethodOptions Method = "options"
	MethodHead    Method = "head"
	MethodPatch   Method = "patch"
	MethodTrace   Method = "trace"
)

var methods = map[Method]bool{
	MethodGet: true, MethodPut: true, MethodPost: true, MethodDelete: true,
	MethodOptions: true, MethodHead: true, MethodPatch: true, MethodTrace: true,
}

// IsMethod reports whether key names an operation in a path item.
func IsMethod(key string) bool {
	return methods[Method(strings.ToLower(key))]
}

// ParseMethod normalizes a configured method name. The empty string stays
// empty and means "the whole path item".
func ParseMethod(s string) Method {
	return Method(strings.ToLower(strings.TrimSpace(s)))
}

// Operation is a view over one verb under one path. Node is the operation
// object itself and is mutated in place.
type Operation struct {
	Path     string
	Method   Method
	Node     *yaml.Node
	PathItem *yaml.Node
}

func (o Operation) String() string {
	return fmt.Sprintf("%s %s", strings.ToUpper(string(o.Method)), o.Path)
}

func (o Operation) ID() string {
	s, _ := StringValue(Get(o.Node, "operationId"))
	return s
}

func (o Operation) Deprecated() bool {
	return BoolValue(Get(o.Node, "deprecated"))
}

func (o Operation) Tags() *yaml.Node {
	return Get(o.Node, "tags")
}

func (o Operation) Responses() *yaml.Node {
	return Get(o.Node, "responses")
}

// HasOperations reports whether a path item still holds any verb.
func HasOperations(pathItem *yaml.Node) bool {
	for k := range Pairs(pathItem) {
		if IsMethod(k) {
			return true
		}
	}
	return false
}

// IsSuccessCode reports whether a response key counts as a success response:
// a 2xx status, the 2XX range, or "default".
func IsSuccessCode(code string) bool {
	if code == "default" {
		return true
	}
	if len(code) != 3 || code[0] != '2' {
		return false
	}
	if code[1:] == "XX" {
		return true
	}
	return isDigit(code[1]) && isDigit(code[2])
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harunnryd/polaris/internal/model/contract"
)

// Tool represents an executable capability offered to the model.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error)
}

// Registry holds a closed set of tools in registration order. It is built once
// at startup and only read afterwards.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{
		tools: make(map[string]Tool, len(tools)),
	}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

func (r *Registry) Register(t Tool) {
	name := NormalizeToolName(t.Name())
	if name == "" {
		panic("tool: empty tool name")
	}
	if _, exists := r.tools[name]; exists {
		panic(fmt.Sprintf("tool: duplicate tool name %q", name))
	}

	r.tools[name] = t
	r.order = append(r.order, name)
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[NormalizeToolName(name)]
	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Definitions returns the tool list sent with every completion request.
func (r *Registry) Definitions() []contract.ToolDef {
	defs := make([]contract.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, contract.ToolDef{
			Name:        name,
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

func (r *Registry) GetDescriptors() []ToolDescriptor {
	descriptors := make([]ToolDescriptor, 0, len(r.order))
	for _, def := range r.Definitions() {
		meta := normalizeToolMetadata(ToolMetadata{})
		if provider, ok := r.tools[def.Name].(MetadataProvider); ok {
			meta = normalizeToolMetadata(provider.ToolMetadata())
		}
		descriptors = append(descriptors, ToolDescriptor{Definition: def, Metadata: meta})
	}
	return descriptors
}

func NormalizeToolName(name string) string {
	return strings.TrimSpace(name)
}

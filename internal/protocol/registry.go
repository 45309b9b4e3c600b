package protocol

import "context"

// Handler produces a tool result from decoded call arguments.
type Handler func(ctx context.Context, args map[string]any) (*Envelope, error)

// ToolDef describes a registered tool as advertised by tools/list.
type ToolDef struct {
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	InputSchema     map[string]any   `json:"inputSchema"`
	Annotations     map[string]any   `json:"annotations"`
	SecuritySchemes []SecurityScheme `json:"securitySchemes"`
	Handler         Handler          `json:"-"`
}

// Registry holds the tool catalogue in registration order.
type Registry struct {
	order []string
	tools map[string]*ToolDef
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*ToolDef)}
}

// Register adds a tool. Re-registering a name replaces the earlier
// definition without changing its position in the catalogue.
func (r *Registry) Register(def *ToolDef) {
	if _, exists := r.tools[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.tools[def.Name] = def
}

// Get returns the tool with the given name.
func (r *Registry) Get(name string) (*ToolDef, bool) {
	def, ok := r.tools[name]
	return def, ok
}

// List returns the catalogue in registration order.
func (r *Registry) List() []*ToolDef {
	defs := make([]*ToolDef, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name])
	}
	return defs
}

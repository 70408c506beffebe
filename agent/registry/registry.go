package registry

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/wayfarer-agent/wayfarer/agent/contract"
)

const (
	defaultTimeout       = 15 * time.Second
	defaultMaxConcurrent = 4
)

// Registration binds one spec to its implementation.
type Registration struct {
	Spec   contractx.ToolSpec
	Invoke contractx.InvokeFunc
}

// Registry is the static tool catalog. All registration happens during
// process startup before Seal; afterwards it is read-only, so lookups
// need no locking.
type Registry struct {
	tools  map[string]Registration
	order  []string
	sealed bool
}

func New() *Registry {
	return &Registry{
		tools: make(map[string]Registration, 16),
	}
}

// Register adds a tool to the catalog. Fails with ErrDuplicateTool when the
// name is taken and ErrRegistrySealed after Seal.
func (r *Registry) Register(spec contractx.ToolSpec, invoke contractx.InvokeFunc) error {
	if r.sealed {
		return fmt.Errorf("%w: cannot register %q", contractx.ErrRegistrySealed, spec.Name)
	}
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return fmt.Errorf("%w: tool name is empty", contractx.ErrValidation)
	}
	if invoke == nil {
		return fmt.Errorf("%w: tool %q has no implementation", contractx.ErrValidation, name)
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", contractx.ErrDuplicateTool, name)
	}

	spec.Name = name
	if spec.Timeout <= 0 {
		spec.Timeout = defaultTimeout
	}
	if spec.MaxConcurrent <= 0 {
		spec.MaxConcurrent = defaultMaxConcurrent
	}

	r.tools[name] = Registration{Spec: spec, Invoke: invoke}
	r.order = append(r.order, name)
	return nil
}

// Seal closes the registration phase.
func (r *Registry) Seal() {
	r.sealed = true
}

// Lookup returns the registration for name or ErrUnknownTool.
func (r *Registry) Lookup(name string) (Registration, error) {
	reg, ok := r.tools[strings.TrimSpace(name)]
	if !ok {
		return Registration{}, fmt.Errorf("%w: %s", contractx.ErrUnknownTool, name)
	}
	return reg, nil
}

// List returns all specs in registration order.
func (r *Registry) List() []contractx.ToolSpec {
	specs := make([]contractx.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].Spec)
	}
	return specs
}

// ToolInfos converts the catalog into eino tool declarations for binding
// to a tool-calling chat model.
func (r *Registry) ToolInfos() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		spec := r.tools[name].Spec
		params := make(map[string]*schema.ParameterInfo, len(spec.Input))
		fields := make([]string, 0, len(spec.Input))
		for field := range spec.Input {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			fs := spec.Input[field]
			params[field] = &schema.ParameterInfo{
				Type:     dataTypeFor(fs.Type),
				Desc:     fs.Desc,
				Required: fs.Required,
			}
		}
		infos = append(infos, &schema.ToolInfo{
			Name:        spec.Name,
			Desc:        spec.Desc,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		})
	}
	return infos
}

func dataTypeFor(t contractx.FieldType) schema.DataType {
	switch t {
	case contractx.FieldNumber:
		return schema.Number
	case contractx.FieldInteger:
		return schema.Integer
	case contractx.FieldBool:
		return schema.Boolean
	case contractx.FieldObject:
		return schema.Object
	case contractx.FieldArray:
		return schema.Array
	default:
		return schema.String
	}
}

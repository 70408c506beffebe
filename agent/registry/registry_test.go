package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/wayfarer-agent/wayfarer/agent/contract"
)

func noopInvoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	return map[string]any{}, nil
}

func TestRegisterDuplicateName(t *testing.T) {
	t.Parallel()

	reg := New()
	if err := reg.Register(contractx.ToolSpec{Name: "echo"}, noopInvoke); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	err := reg.Register(contractx.ToolSpec{Name: "echo"}, noopInvoke)
	if !errors.Is(err, contractx.ErrDuplicateTool) {
		t.Fatalf("Register() error = %v, want ErrDuplicateTool", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	reg := New()
	if err := reg.Register(contractx.ToolSpec{Name: "  "}, noopInvoke); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("empty name error = %v, want ErrValidation", err)
	}
	if err := reg.Register(contractx.ToolSpec{Name: "echo"}, nil); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("nil invoke error = %v, want ErrValidation", err)
	}
}

func TestRegisterAfterSeal(t *testing.T) {
	t.Parallel()

	reg := New()
	reg.Seal()

	err := reg.Register(contractx.ToolSpec{Name: "echo"}, noopInvoke)
	if !errors.Is(err, contractx.ErrRegistrySealed) {
		t.Fatalf("Register() error = %v, want ErrRegistrySealed", err)
	}
}

func TestRegisterAppliesDefaults(t *testing.T) {
	t.Parallel()

	reg := New()
	if err := reg.Register(contractx.ToolSpec{Name: "echo"}, noopInvoke); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, err := reg.Lookup("echo")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got.Spec.Timeout != defaultTimeout {
		t.Fatalf("Timeout = %s, want %s", got.Spec.Timeout, defaultTimeout)
	}
	if got.Spec.MaxConcurrent != defaultMaxConcurrent {
		t.Fatalf("MaxConcurrent = %d, want %d", got.Spec.MaxConcurrent, defaultMaxConcurrent)
	}
}

func TestLookupUnknown(t *testing.T) {
	t.Parallel()

	reg := New()
	_, err := reg.Lookup("missing")
	if !errors.Is(err, contractx.ErrUnknownTool) {
		t.Fatalf("Lookup() error = %v, want ErrUnknownTool", err)
	}
}

func TestListKeepsRegistrationOrder(t *testing.T) {
	t.Parallel()

	reg := New()
	for _, name := range []string{"zulu", "alpha", "mike"} {
		if err := reg.Register(contractx.ToolSpec{Name: name}, noopInvoke); err != nil {
			t.Fatalf("Register(%s) error = %v", name, err)
		}
	}

	specs := reg.List()
	want := []string{"zulu", "alpha", "mike"}
	if len(specs) != len(want) {
		t.Fatalf("List() length = %d, want %d", len(specs), len(want))
	}
	for i, spec := range specs {
		if spec.Name != want[i] {
			t.Fatalf("List()[%d] = %s, want %s", i, spec.Name, want[i])
		}
	}
}

func TestToolInfos(t *testing.T) {
	t.Parallel()

	reg := New()
	err := reg.Register(contractx.ToolSpec{
		Name: "weather.forecast",
		Desc: "daily forecast",
		Input: map[string]contractx.FieldSpec{
			"place": {Type: contractx.FieldString, Desc: "place name", Required: true},
			"days":  {Type: contractx.FieldInteger},
		},
		Timeout: time.Second,
	}, noopInvoke)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	infos := reg.ToolInfos()
	if len(infos) != 1 {
		t.Fatalf("ToolInfos() length = %d, want 1", len(infos))
	}
	if infos[0].Name != "weather.forecast" || infos[0].Desc != "daily forecast" {
		t.Fatalf("unexpected info: %+v", infos[0])
	}
	if infos[0].ParamsOneOf == nil {
		t.Fatal("ParamsOneOf not populated")
	}
}

func TestDataTypeFor(t *testing.T) {
	t.Parallel()

	cases := map[contractx.FieldType]schema.DataType{
		contractx.FieldString:  schema.String,
		contractx.FieldNumber:  schema.Number,
		contractx.FieldInteger: schema.Integer,
		contractx.FieldBool:    schema.Boolean,
		contractx.FieldObject:  schema.Object,
		contractx.FieldArray:   schema.Array,
	}
	for in, want := range cases {
		if got := dataTypeFor(in); got != want {
			t.Fatalf("dataTypeFor(%s) = %s, want %s", in, got, want)
		}
	}
}

package entities

// MachineManifest declares foreign functions exported by a WebAssembly module.
type MachineManifest struct {
	Name        string             `json:"name" yaml:"name" validate:"required" jsonschema:"minLength=1"`
	WireVersion string             `json:"wire_version" yaml:"wire_version" validate:"required" jsonschema_description:"Semantic version of the value encoding the module speaks"`
	Module      string             `json:"module" yaml:"module" validate:"required" jsonschema_description:"Path to the WebAssembly module, relative to the manifest"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Functions   []ManifestFunction `json:"functions" yaml:"functions" validate:"required,min=1,dive"`
}

// ManifestFunction binds a registered function name to a guest export.
// Export defaults to Name when empty.
type ManifestFunction struct {
	Name       string              `json:"name" yaml:"name" validate:"required" jsonschema:"minLength=1"`
	Export     string              `json:"export,omitempty" yaml:"export,omitempty"`
	Parameters []ManifestParameter `json:"parameters,omitempty" yaml:"parameters,omitempty" validate:"dive"`
	Returns    []ManifestParameter `json:"returns,omitempty" yaml:"returns,omitempty" validate:"dive"`
}

// ManifestParameter uses the textual type names, e.g. "int" or "double[]".
type ManifestParameter struct {
	Name string `json:"name" yaml:"name" validate:"required"`
	Type string `json:"type" yaml:"type" validate:"required,valuetype" jsonschema:"enum=bool,enum=byte,enum=short,enum=int,enum=long,enum=float,enum=double,enum=string,enum=bool[],enum=byte[],enum=short[],enum=int[],enum=long[],enum=float[],enum=double[],enum=string[]"`
}

// ExportName returns the guest export backing the function.
func (f ManifestFunction) ExportName() string {
	if f.Export != "" {
		return f.Export
	}
	return f.Name
}

// Signature converts the declared parameter lists. Type names must already
// have been validated.
func (f ManifestFunction) Signature() (Signature, error) {
	params, err := manifestParams(f.Parameters)
	if err != nil {
		return Signature{}, err
	}
	returns, err := manifestParams(f.Returns)
	if err != nil {
		return Signature{}, err
	}
	return Signature{Parameters: params, Returns: returns}, nil
}

func manifestParams(in []ManifestParameter) ([]Parameter, error) {
	out := make([]Parameter, len(in))
	for i, p := range in {
		t, err := ParseValueType(p.Type)
		if err != nil {
			return nil, err
		}
		out[i] = Parameter{Name: p.Name, Type: t}
	}
	return out, nil
}

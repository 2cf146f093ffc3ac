package entities

// MachineDescription is what a machine announces when it connects: its name
// and the callable surface, with types given by their textual names.
type MachineDescription struct {
	Name        string                `json:"name" cbor:"name"`
	WireVersion string                `json:"wire_version" cbor:"wire_version"`
	Functions   []FunctionDescription `json:"functions" cbor:"functions"`
}

// FunctionDescription describes one registered function.
type FunctionDescription struct {
	Name       string                 `json:"name" cbor:"name"`
	Parameters []ParameterDescription `json:"parameters" cbor:"parameters"`
	Returns    []ParameterDescription `json:"returns" cbor:"returns"`
}

// ParameterDescription is a name and textual type pair.
type ParameterDescription struct {
	Name string `json:"name" cbor:"name"`
	Type string `json:"type" cbor:"type"`
}

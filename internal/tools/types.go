package tools

// Status captures the resolved state for an external tool.
type Status struct {
	Tool      string            `json:"tool"`
	Purpose   string            `json:"purpose,omitempty"`
	Version   string            `json:"version,omitempty"`
	Minimum   string            `json:"minimum,omitempty"`
	Path      string            `json:"path,omitempty"`
	Paths     map[string]string `json:"paths,omitempty"`
	Required  bool              `json:"required"`
	Satisfied bool              `json:"satisfied"`
	Error     string            `json:"error,omitempty"`
	Hints     []string          `json:"hints,omitempty"`
}

// BinarySpec describes an executable that belongs to a tool.
type BinarySpec struct {
	ID            string
	Executable    string
	VersionSwitch string
}

// ToolDefinition contains metadata required to locate a tool.
type ToolDefinition struct {
	Name           string
	Purpose        string
	MinimumVersion string
	Required       bool
	Binaries       []BinarySpec
}

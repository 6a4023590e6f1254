package types

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// ExecutionState is the server-reported lifecycle state of a kernel instance.
type ExecutionState string

const (
	ExecutionStarting ExecutionState = "starting"
	ExecutionIdle     ExecutionState = "idle"
	ExecutionBusy     ExecutionState = "busy"
	ExecutionDead     ExecutionState = "dead"
)

// ConnectionStatus is the local status of a kernel connection handle.
type ConnectionStatus string

const (
	StatusUnknown    ConnectionStatus = "unknown"
	StatusStarting   ConnectionStatus = "starting"
	StatusIdle       ConnectionStatus = "idle"
	StatusBusy       ConnectionStatus = "busy"
	StatusRestarting ConnectionStatus = "restarting"
	StatusDead       ConnectionStatus = "dead"
)

// KernelSpec describes one installable kernel type. Immutable once fetched.
type KernelSpec struct {
	Name        string                 `json:"name"`
	DisplayName string                 `json:"display_name"`
	Language    string                 `json:"language"`
	Argv        []string               `json:"argv"`
	ResourceDir string                 `json:"resource_dir,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// SpecCollection is the set of kernel specs installed on the server plus the
// server's designated default type. Default is a key of Specs whenever Specs
// is non-empty.
type SpecCollection struct {
	Default string                `json:"default"`
	Specs   map[string]KernelSpec `json:"kernelspecs"`
}

// Clone returns a deep-enough copy for handing out to callers: the spec map
// is copied, the specs themselves are treated as immutable.
func (c *SpecCollection) Clone() *SpecCollection {
	if c == nil {
		return nil
	}
	return &SpecCollection{
		Default: c.Default,
		Specs:   maps.Clone(c.Specs),
	}
}

// Equal reports whether two collections carry the same default and the same
// spec set. Any field difference in any spec counts as a difference.
func (c *SpecCollection) Equal(other *SpecCollection) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.Default != other.Default || len(c.Specs) != len(other.Specs) {
		return false
	}
	for name, spec := range c.Specs {
		otherSpec, ok := other.Specs[name]
		if !ok || !spec.Equal(otherSpec) {
			return false
		}
	}
	return true
}

// Names returns the spec names in sorted order.
func (c *SpecCollection) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Specs))
	for name := range c.Specs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Equal reports field equality between two specs.
func (s KernelSpec) Equal(other KernelSpec) bool {
	if s.Name != other.Name || s.DisplayName != other.DisplayName ||
		s.Language != other.Language || s.ResourceDir != other.ResourceDir {
		return false
	}
	if len(s.Argv) != len(other.Argv) {
		return false
	}
	for i := range s.Argv {
		if s.Argv[i] != other.Argv[i] {
			return false
		}
	}
	// Metadata is opaque server-side JSON; compare shallowly by key count and
	// stringified values, which is enough to detect payload changes.
	if len(s.Metadata) != len(other.Metadata) {
		return false
	}
	for k, v := range s.Metadata {
		if ov, ok := other.Metadata[k]; !ok || !looseEqual(v, ov) {
			return false
		}
	}
	return true
}

// KernelModel is one running kernel instance as reported by the server.
type KernelModel struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Connections    int            `json:"connections"`
	LastActivity   time.Time      `json:"last_activity"`
	ExecutionState ExecutionState `json:"execution_state"`
}

// Equal reports field equality between two instance records.
func (m KernelModel) Equal(other KernelModel) bool {
	return m.ID == other.ID &&
		m.Name == other.Name &&
		m.Connections == other.Connections &&
		m.LastActivity.Equal(other.LastActivity) &&
		m.ExecutionState == other.ExecutionState
}

// StartOptions carries caller-supplied options for starting a new kernel.
type StartOptions struct {
	// Name selects the kernel spec; empty means the server default.
	Name string `json:"name,omitempty"`
	// Env is passed through to the server for the kernel process.
	Env map[string]string `json:"env,omitempty"`
}

func looseEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	default:
		// Nested structures: fall back to formatted comparison.
		return fmt.Sprintf("%#v", a) == fmt.Sprintf("%#v", b)
	}
}

package types

import (
	"testing"
	"time"
)

func TestSpecCollectionEqual(t *testing.T) {
	echo := KernelSpec{Name: "echo", DisplayName: "Echo", Language: "bash", Argv: []string{"echo"}}
	shell := KernelSpec{Name: "shell", DisplayName: "Shell", Language: "bash", Argv: []string{"sh"}}

	a := &SpecCollection{Default: "echo", Specs: map[string]KernelSpec{"echo": echo}}
	b := &SpecCollection{Default: "echo", Specs: map[string]KernelSpec{"echo": echo}}
	if !a.Equal(b) {
		t.Error("identical collections should be equal")
	}

	c := &SpecCollection{Default: "shell", Specs: map[string]KernelSpec{"echo": echo, "shell": shell}}
	if a.Equal(c) {
		t.Error("collections with different defaults and spec sets should differ")
	}

	// Same names, one changed field.
	changed := echo
	changed.DisplayName = "Echo v2"
	d := &SpecCollection{Default: "echo", Specs: map[string]KernelSpec{"echo": changed}}
	if a.Equal(d) {
		t.Error("field difference inside a spec should count as a change")
	}

	var nilCol *SpecCollection
	if nilCol.Equal(a) || a.Equal(nilCol) {
		t.Error("nil collection only equals nil")
	}
	if !nilCol.Equal(nil) {
		t.Error("nil equals nil")
	}
}

func TestKernelSpecEqualMetadata(t *testing.T) {
	a := KernelSpec{Name: "py", Metadata: map[string]interface{}{"debugger": true}}
	b := KernelSpec{Name: "py", Metadata: map[string]interface{}{"debugger": true}}
	if !a.Equal(b) {
		t.Error("equal metadata should compare equal")
	}
	b.Metadata["debugger"] = false
	if a.Equal(b) {
		t.Error("metadata value change should be detected")
	}
}

func TestKernelModelEqual(t *testing.T) {
	now := time.Now()
	a := KernelModel{ID: "k1", Name: "python3", Connections: 1, LastActivity: now, ExecutionState: ExecutionIdle}
	b := a
	if !a.Equal(b) {
		t.Error("copies should be equal")
	}
	b.ExecutionState = ExecutionBusy
	if a.Equal(b) {
		t.Error("execution state change should be detected")
	}
}

func TestSpecCollectionClone(t *testing.T) {
	orig := &SpecCollection{
		Default: "echo",
		Specs:   map[string]KernelSpec{"echo": {Name: "echo"}},
	}
	clone := orig.Clone()
	clone.Specs["extra"] = KernelSpec{Name: "extra"}
	if len(orig.Specs) != 1 {
		t.Error("mutating a clone must not touch the original")
	}

	var nilCol *SpecCollection
	if nilCol.Clone() != nil {
		t.Error("clone of nil is nil")
	}
}

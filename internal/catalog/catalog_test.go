package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalogIntegrity(t *testing.T) {
	c := New()

	if c.Len() == 0 {
		t.Fatal("default catalog is empty")
	}

	for _, def := range c.All() {
		if def.ID == "" || def.Name == "" || def.Category == "" {
			t.Errorf("module %q has missing identity fields", def.ID)
		}
		for _, dep := range def.Dependencies {
			if !c.Exists(dep) {
				t.Errorf("module %s depends on unknown module %s", def.ID, dep)
			}
			if dep == def.ID {
				t.Errorf("module %s depends on itself", def.ID)
			}
		}
	}
}

func TestDefaultCatalogIsAcyclic(t *testing.T) {
	c := New()

	// Depth-first walk over dependency edges; the catalog is small enough
	// that a plain reachability check is all we need.
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int)

	var visit func(id string) bool
	visit = func(id string) bool {
		switch state[id] {
		case inStack:
			return false
		case done:
			return true
		}
		state[id] = inStack
		def, _ := c.Get(id)
		for _, dep := range def.Dependencies {
			if !visit(dep) {
				return false
			}
		}
		state[id] = done
		return true
	}

	for _, def := range c.All() {
		if !visit(def.ID) {
			t.Fatalf("dependency cycle involving module %s", def.ID)
		}
	}
}

func TestGetUnknownModule(t *testing.T) {
	c := New()
	if _, ok := c.Get("MOD_999"); ok {
		t.Error("expected lookup of unknown module to fail")
	}
	if c.Exists("") {
		t.Error("empty module id should not exist")
	}
}

func TestRequiredSubModules(t *testing.T) {
	c := New()
	def, ok := c.Get("MOD_201")
	if !ok {
		t.Fatal("MOD_201 missing from default catalog")
	}

	required := def.RequiredSubModules()
	if len(required) != 4 {
		t.Fatalf("expected 4 required sub-modules for MOD_201, got %d", len(required))
	}
	for _, id := range required {
		if id == "SUB_201_AGREEMENTS" {
			t.Error("optional sub-module listed as required")
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")

	content := `modules:
  - id: MOD_A
    name: Alpha
    category: foundation
    estimated_time: 1 hour
    submodules:
      - id: SUB_A1
        name: First step
        required: true
  - id: MOD_B
    name: Beta
    category: legal
    estimated_time: 2 hours
    dependencies: [MOD_A]
    submodules:
      - id: SUB_B1
        name: Only step
        required: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 modules, got %d", c.Len())
	}
	def, ok := c.Get("MOD_B")
	if !ok {
		t.Fatal("MOD_B missing after load")
	}
	if len(def.Dependencies) != 1 || def.Dependencies[0] != "MOD_A" {
		t.Errorf("unexpected dependencies: %v", def.Dependencies)
	}
}

func TestLoadFileRejectsUnknownDependency(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")

	content := `modules:
  - id: MOD_A
    name: Alpha
    category: foundation
    dependencies: [MOD_MISSING]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for unknown dependency")
	}
}

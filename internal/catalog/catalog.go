// Package catalog holds the static module catalog: the business-automation
// modules a user can work through, their sub-steps, and the dependency edges
// that gate later modules on earlier ones. Loaded once at startup, read-only
// afterwards, freely shared across goroutines.
package catalog

import (
	"fmt"
	"log"
	"os"

	"venturekit/internal/models"

	"gopkg.in/yaml.v3"
)

// Catalog is the process-wide module lookup table.
type Catalog struct {
	defs  map[string]models.ModuleDefinition
	order []string // catalog order, used for "what's next" suggestions
}

// New returns the catalog seeded with the built-in module definitions.
func New() *Catalog {
	c := &Catalog{defs: make(map[string]models.ModuleDefinition)}
	for _, def := range defaultDefinitions() {
		c.defs[def.ID] = def
		c.order = append(c.order, def.ID)
	}
	return c
}

// LoadFile replaces the built-in definitions with a YAML catalog file.
// Used by deployments that customize the module lineup.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file struct {
		Modules []models.ModuleDefinition `yaml:"modules"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	if len(file.Modules) == 0 {
		return nil, fmt.Errorf("catalog file %s defines no modules", path)
	}

	c := &Catalog{defs: make(map[string]models.ModuleDefinition)}
	for _, def := range file.Modules {
		if def.ID == "" {
			return nil, fmt.Errorf("catalog file %s contains a module without an id", path)
		}
		if _, dup := c.defs[def.ID]; dup {
			return nil, fmt.Errorf("duplicate module id %s in catalog file", def.ID)
		}
		c.defs[def.ID] = def
		c.order = append(c.order, def.ID)
	}

	// Dependency edges must point at modules in the same catalog.
	for _, def := range c.defs {
		for _, dep := range def.Dependencies {
			if _, ok := c.defs[dep]; !ok {
				return nil, fmt.Errorf("module %s depends on unknown module %s", def.ID, dep)
			}
		}
	}

	log.Printf("📚 [CATALOG] Loaded %d modules from %s", len(c.defs), path)
	return c, nil
}

// Get returns the definition for a module id.
func (c *Catalog) Get(moduleID string) (models.ModuleDefinition, bool) {
	def, ok := c.defs[moduleID]
	return def, ok
}

// Exists reports whether the module id is in the catalog.
func (c *Catalog) Exists(moduleID string) bool {
	_, ok := c.defs[moduleID]
	return ok
}

// All returns the definitions in catalog order.
func (c *Catalog) All() []models.ModuleDefinition {
	defs := make([]models.ModuleDefinition, 0, len(c.order))
	for _, id := range c.order {
		defs = append(defs, c.defs[id])
	}
	return defs
}

// Len returns the number of modules in the catalog.
func (c *Catalog) Len() int {
	return len(c.defs)
}

// defaultDefinitions is the built-in launch sequence. Dependencies form a
// DAG: each module gates the next stage of the launch.
func defaultDefinitions() []models.ModuleDefinition {
	return []models.ModuleDefinition{
		{
			ID:            "MOD_101",
			Name:          "Business Foundation",
			Category:      "foundation",
			EstimatedTime: "2-3 hours",
			SubModules: []models.SubModuleDefinition{
				{ID: "SUB_101_IDEA", Name: "Business idea summary", Required: true},
				{ID: "SUB_101_AUDIENCE", Name: "Target audience", Required: true},
				{ID: "SUB_101_NAME", Name: "Business name", Required: true},
				{ID: "SUB_101_COMPETITORS", Name: "Competitor scan", Required: false},
			},
		},
		{
			ID:            "MOD_201",
			Name:          "Legal Setup",
			Category:      "legal",
			EstimatedTime: "1-2 days",
			Dependencies:  []string{"MOD_101"},
			SubModules: []models.SubModuleDefinition{
				{ID: "SUB_201_STRUCTURE", Name: "Choose legal structure", Required: true},
				{ID: "SUB_201_STATE", Name: "Choose incorporation state", Required: true},
				{ID: "SUB_201_FILING", Name: "File formation documents", Required: true},
				{ID: "SUB_201_EIN", Name: "Obtain EIN", Required: true},
				{ID: "SUB_201_AGREEMENTS", Name: "Operating agreements", Required: false},
			},
		},
		{
			ID:            "MOD_301",
			Name:          "Branding",
			Category:      "brand",
			EstimatedTime: "3-5 hours",
			Dependencies:  []string{"MOD_201"},
			SubModules: []models.SubModuleDefinition{
				{ID: "SUB_301_PALETTE", Name: "Color palette", Required: true},
				{ID: "SUB_301_LOGO", Name: "Logo", Required: true},
				{ID: "SUB_301_VOICE", Name: "Brand voice", Required: true},
				{ID: "SUB_301_GUIDELINES", Name: "Brand guidelines doc", Required: false},
			},
		},
		{
			ID:            "MOD_401",
			Name:          "Website",
			Category:      "web",
			EstimatedTime: "1-2 days",
			Dependencies:  []string{"MOD_301"},
			SubModules: []models.SubModuleDefinition{
				{ID: "SUB_401_DOMAIN", Name: "Register domain", Required: true},
				{ID: "SUB_401_PAGES", Name: "Core pages", Required: true},
				{ID: "SUB_401_LAUNCH", Name: "Publish site", Required: true},
				{ID: "SUB_401_ANALYTICS", Name: "Analytics setup", Required: false},
			},
		},
		{
			ID:            "MOD_501",
			Name:          "Marketing Launch",
			Category:      "marketing",
			EstimatedTime: "ongoing",
			Dependencies:  []string{"MOD_401"},
			SubModules: []models.SubModuleDefinition{
				{ID: "SUB_501_CHANNELS", Name: "Pick launch channels", Required: true},
				{ID: "SUB_501_CONTENT", Name: "First content batch", Required: true},
				{ID: "SUB_501_EMAIL", Name: "Email list setup", Required: false},
				{ID: "SUB_501_ADS", Name: "Paid ads experiment", Required: false},
			},
		},
	}
}

package views

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SetupViewsFolder creates viewsDir with an example view.
// Returns true if the folder was created, false if it already existed.
func SetupViewsFolder(viewsDir string) (bool, error) {
	if _, err := os.Stat(viewsDir); err == nil {
		return false, nil
	}

	if err := os.MkdirAll(viewsDir, 0755); err != nil {
		return false, err
	}

	exampleYAML := `name: urgent
description: Open high-priority tasks, earliest due first
status: active
priority: high
sort: dueDate
fields: [id, priority, text, due, tags]
`
	if err := os.WriteFile(filepath.Join(viewsDir, "urgent.yaml"), []byte(exampleYAML), 0644); err != nil {
		return false, err
	}

	return true, nil
}

// Loader resolves view names to views, from disk first and then built-ins.
type Loader struct {
	viewsDir string
}

// NewLoader creates a loader reading <viewsDir>/<name>.yaml. An empty
// viewsDir serves built-ins only.
func NewLoader(viewsDir string) *Loader {
	return &Loader{viewsDir: viewsDir}
}

// ValidateViewName checks that name is safe to use as a file name.
func ValidateViewName(name string) error {
	if name == "" {
		return fmt.Errorf("view name cannot be empty")
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("invalid view name '%s': contains path separator", name)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("invalid view name '%s': contains path traversal sequence", name)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid view name '%s': cannot start with '.'", name)
	}
	return nil
}

// LoadView loads a view by name. A file on disk overrides a built-in of the
// same name; an empty name loads "default".
func (l *Loader) LoadView(name string) (*View, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		normalized = "default"
	}
	if err := ValidateViewName(normalized); err != nil {
		return nil, err
	}

	if path, ok := l.viewPath(normalized); ok {
		if _, err := os.Stat(path); err == nil {
			return l.loadFromDisk(normalized, path)
		}
	}

	if v, ok := BuiltIn(normalized); ok {
		return v, nil
	}
	return nil, fmt.Errorf("view '%s' not found", name)
}

// viewPath returns the file for name if it resolves inside the views dir.
func (l *Loader) viewPath(name string) (string, bool) {
	if l.viewsDir == "" {
		return "", false
	}
	path := filepath.Join(l.viewsDir, name+".yaml")

	absDir, err := filepath.Abs(l.viewsDir)
	if err != nil {
		return "", false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	if !strings.HasPrefix(absPath, absDir+string(filepath.Separator)) {
		return "", false
	}
	return path, true
}

func (l *Loader) loadFromDisk(name, path string) (*View, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("view '%s' not found", name)
		}
		return nil, fmt.Errorf("failed to read view '%s': %w", name, err)
	}

	var view View
	if err := yaml.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("failed to parse view '%s': %w", name, err)
	}
	if view.Name == "" {
		view.Name = name
	}

	if err := validateView(&view); err != nil {
		return nil, fmt.Errorf("invalid view '%s': %w", name, err)
	}
	return &view, nil
}

// ViewInfo describes a view for listing.
type ViewInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	BuiltIn     bool   `json:"built_in"`
	Overrides   bool   `json:"overrides"` // a file on disk replaces the built-in
}

// ListViews returns the built-in views followed by custom views on disk,
// custom views sorted by name.
func (l *Loader) ListViews() ([]ViewInfo, error) {
	var infos []ViewInfo
	overridden := make(map[string]bool)

	for _, b := range builtIns {
		info := ViewInfo{Name: b.Name, Description: b.Description, BuiltIn: true}
		if path, ok := l.viewPath(b.Name); ok {
			if _, err := os.Stat(path); err == nil {
				overridden[b.Name] = true
				info.BuiltIn = false
				info.Overrides = true
				if v, err := l.loadFromDisk(b.Name, path); err == nil && v.Description != "" {
					info.Description = v.Description
				}
			}
		}
		infos = append(infos, info)
	}

	if l.viewsDir == "" {
		return infos, nil
	}
	entries, err := os.ReadDir(l.viewsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return infos, nil
		}
		return nil, fmt.Errorf("failed to read views directory: %w", err)
	}

	var custom []ViewInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".yaml")
		if _, isBuiltIn := BuiltIn(name); isBuiltIn {
			continue
		}
		desc := ""
		if v, err := l.LoadView(name); err == nil {
			desc = v.Description
		}
		custom = append(custom, ViewInfo{Name: name, Description: desc})
	}
	sort.Slice(custom, func(i, j int) bool { return custom[i].Name < custom[j].Name })

	return append(infos, custom...), nil
}

// ViewExists reports whether name resolves to a built-in or a file.
func (l *Loader) ViewExists(name string) bool {
	normalized := strings.ToLower(name)
	if normalized == "" {
		return true
	}
	if _, ok := BuiltIn(normalized); ok {
		return true
	}
	if ValidateViewName(normalized) != nil {
		return false
	}
	path, ok := l.viewPath(normalized)
	if !ok {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func validateView(v *View) error {
	if _, err := v.Query(); err != nil {
		return err
	}

	valid := make(map[string]bool)
	for _, f := range AvailableFields {
		valid[f] = true
	}
	for _, f := range v.Fields {
		if !valid[f] {
			return fmt.Errorf("unknown field: %s", f)
		}
	}
	return nil
}

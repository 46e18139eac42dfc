// Package file provides file-based persistence for funnels, executions,
// leads and message templates. Each record is one JSON file under a
// per-collection directory.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/leadflowhq/leadflow/pkg/persistence"
)

// Persistence implements persistence.Persistence on the file system.
type Persistence struct {
	root       string
	funnels    *FunnelRepository
	executions *ExecutionRepository
	leads      *LeadRepository
	templates  *TemplateRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
// A "file://" prefix is stripped so database URLs can be passed verbatim.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:       cleanRoot,
		funnels:    NewFunnelRepository(cleanRoot),
		executions: NewExecutionRepository(cleanRoot),
		leads:      NewLeadRepository(cleanRoot),
		templates:  NewTemplateRepository(cleanRoot),
	}
}

func (fp *Persistence) Funnels() persistence.FunnelRepository         { return fp.funnels }
func (fp *Persistence) Executions() persistence.ExecutionRepository   { return fp.executions }
func (fp *Persistence) Leads() persistence.LeadRepository             { return fp.leads }
func (fp *Persistence) Templates() persistence.TemplateRepository     { return fp.templates }

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file persistence there is none.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// collection handles the shared one-JSON-file-per-record mechanics.
type collection struct {
	dir string
}

func (c *collection) listIDs() ([]string, error) {
	root := os.DirFS(c.dir)

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.dir, err)
	}

	ids := make([]string, 0, len(jsonFiles))
	for _, file := range jsonFiles {
		ids = append(ids, file[:len(file)-5]) // Remove .json extension
	}

	return ids, nil
}

func (c *collection) read(id string, out any) (bool, error) {
	filePath := filepath.Clean(path.Join(c.dir, id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read record %s: %w", id, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal record %s: %w", id, err)
	}

	return true, nil
}

func (c *collection) write(id string, record any) error {
	if err := os.MkdirAll(c.dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.dir, err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", id, err)
	}

	return os.WriteFile(path.Join(c.dir, id+".json"), data, 0600)
}

func (c *collection) remove(id string) error {
	err := os.Remove(path.Join(c.dir, id+".json"))
	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}

	return nil
}

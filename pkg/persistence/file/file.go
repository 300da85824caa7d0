// Package file provides file-based persistence for playbooks and their execution log.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/deskflow/pkg/persistence"
)

const (
	dirPermissions  = 0750
	filePermissions = 0600
)

// Persistence implements the persistence.Persistence interface using the file system.
// Every document is a JSON file: <root>/playbooks/<id>.json and <root>/executions/<id>.json.
type Persistence struct {
	root          string
	mu            sync.Mutex
	playbookRepo  *PlaybookRepository
	executionRepo *ExecutionRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	fp := &Persistence{root: cleanRoot}
	fp.playbookRepo = &PlaybookRepository{persistence: fp}
	fp.executionRepo = &ExecutionRepository{persistence: fp}

	return fp
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) PlaybookRepository() persistence.PlaybookRepository {
	return fp.playbookRepo
}

func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return fp.executionRepo
}

// validateID validates that the ID is safe for file operations.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", persistence.ErrInvalidID)
	}

	// Check for path traversal attempts
	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q contains invalid characters", persistence.ErrInvalidID, id)
	}

	return nil
}

func (fp *Persistence) path(collection, id string) string {
	return filepath.Join(fp.root, collection, id+".json")
}

func (fp *Persistence) write(collection, id string, document any) error {
	dir := filepath.Join(fp.root, collection)

	err := os.MkdirAll(dir, dirPermissions)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", collection, err)
	}

	data, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", collection, id, err)
	}

	err = os.WriteFile(fp.path(collection, id), data, filePermissions)
	if err != nil {
		return fmt.Errorf("failed to write %s %s: %w", collection, id, err)
	}

	return nil
}

// read returns os.ErrNotExist (wrapped) when the document is absent.
func (fp *Persistence) read(collection, id string, document any) error {
	data, err := os.ReadFile(fp.path(collection, id)) // #nosec G304 -- id is validated and the path constructed safely
	if err != nil {
		return err
	}

	err = json.Unmarshal(data, document)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s %s: %w", collection, id, err)
	}

	return nil
}

// ids lists the document ids of a collection in directory order.
func (fp *Persistence) ids(collection string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(fp.root, collection))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}

		return nil, fmt.Errorf("failed to read %s directory: %w", collection, err)
	}

	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}

	return ids, nil
}

package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dukex/flowbuilder/pkg/models"
	"github.com/dukex/flowbuilder/pkg/persistence"
)

const flowsDir = "flows"

// FlowRepository stores each flow as an indented JSON document under {root}/flows.
type FlowRepository struct {
	root string
}

// NewFlowRepository creates a new flow repository.
func NewFlowRepository(root string) *FlowRepository {
	return &FlowRepository{root: root}
}

// GetAll loads every stored flow, oldest first.
func (fr *FlowRepository) GetAll(ctx context.Context) ([]*models.Flow, error) {
	jsonFiles, err := fs.Glob(os.DirFS(fr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list flow files: %w", err)
	}

	flows := make([]*models.Flow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		flow, err := fr.GetByID(ctx, strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		flows = append(flows, flow)
	}

	sort.SliceStable(flows, func(i, j int) bool {
		return flows[i].CreatedAt.Before(flows[j].CreatedAt)
	})

	return flows, nil
}

// GetByID retrieves a flow by its ID from the file system.
func (fr *FlowRepository) GetByID(_ context.Context, flowID string) (*models.Flow, error) {
	filePath, err := fr.path(flowID)
	if err != nil {
		return nil, persistence.NewFlowError("GetByID", flowID, err)
	}

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewFlowError("GetByID", flowID, persistence.ErrFlowNotFound)
		}

		return nil, fmt.Errorf("failed to fetch flow %s: %w", flowID, err)
	}

	var flow models.Flow

	err = json.Unmarshal(body, &flow)
	if err != nil {
		return nil, &persistence.FlowError{
			Op:      "GetByID",
			FlowID:  flowID,
			Err:     persistence.ErrInvalidFlowData,
			Message: err.Error(),
		}
	}

	return &flow, nil
}

// Save writes a flow to the file system, replacing any previous version.
func (fr *FlowRepository) Save(_ context.Context, flow *models.Flow) error {
	filePath, err := fr.path(flow.ID)
	if err != nil {
		return persistence.NewFlowError("Save", flow.ID, err)
	}

	err = os.MkdirAll(fr.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create flows directory: %w", err)
	}

	now := time.Now().UTC()
	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	flow.UpdatedAt = now

	data, err := json.MarshalIndent(flow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal flow %s: %w", flow.ID, err)
	}

	return writeFileAtomic(filePath, data)
}

// writeFileAtomic writes data to a temporary file next to path and renames it
// into place, so readers see either the previous or the new document.
func writeFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary flow file: %w", err)
	}

	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	_, err = tmp.Write(data)
	if err != nil {
		_ = tmp.Close()

		return fmt.Errorf("failed to write flow file: %w", err)
	}

	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("failed to write flow file: %w", err)
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		return fmt.Errorf("failed to replace flow file: %w", err)
	}

	return nil
}

// Delete removes a flow by its ID.
func (fr *FlowRepository) Delete(_ context.Context, flowID string) error {
	filePath, err := fr.path(flowID)
	if err != nil {
		return persistence.NewFlowError("Delete", flowID, err)
	}

	err = os.Remove(filePath)
	if err != nil && os.IsNotExist(err) {
		return persistence.NewFlowError("Delete", flowID, persistence.ErrFlowNotFound)
	}

	if err != nil {
		return fmt.Errorf("failed to delete flow %s: %w", flowID, err)
	}

	return nil
}

func (fr *FlowRepository) dir() string {
	return filepath.Join(fr.root, flowsDir)
}

// path maps a flow id to its file, refusing ids that would escape the flows directory.
func (fr *FlowRepository) path(flowID string) (string, error) {
	if flowID == "" || !filepath.IsLocal(flowID) || strings.ContainsAny(flowID, `/\`) {
		return "", fmt.Errorf("%w: %q", persistence.ErrInvalidFlowID, flowID)
	}

	return filepath.Join(fr.dir(), flowID+".json"), nil
}

package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pangents/orchestrator/types"
)

// Record is the persisted form of a workflow definition. The composite
// primary key scopes every lookup by tenant, so cross-tenant access is
// impossible by construction.
type Record struct {
	TenantID  string    `gorm:"primaryKey;size:64"`
	ID        string    `gorm:"primaryKey;size:64"`
	Name      string    `gorm:"size:255"`
	Nodes     []byte    `gorm:"type:text"`
	Edges     []byte    `gorm:"type:text"`
	UpdatedAt time.Time `gorm:"index"`
}

// TableName keeps the table name stable across drivers.
func (Record) TableName() string { return "workflows" }

// Store persists workflow definitions per tenant.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore migrates the schema and returns a Store.
func NewStore(db *gorm.DB, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate workflow schema: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger.With(zap.String("component", "workflow_store")),
	}, nil
}

// List returns the tenant's workflow summaries, newest first.
func (s *Store) List(ctx context.Context, tenantID string) ([]Summary, error) {
	var records []Record
	err := s.db.WithContext(ctx).
		Select("id", "name", "updated_at").
		Where("tenant_id = ?", tenantID).
		Order("updated_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	summaries := make([]Summary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, Summary{ID: rec.ID, Name: rec.Name, UpdatedAt: rec.UpdatedAt})
	}
	return summaries, nil
}

// Create saves a new workflow and returns its id, generating one when the
// definition carries none.
func (s *Store) Create(ctx context.Context, tenantID string, def *Definition) (string, error) {
	id := def.ID
	if id == "" {
		id = newWorkflowID()
	}
	if err := s.save(ctx, tenantID, id, def); err != nil {
		return "", err
	}
	s.logger.Info("workflow created",
		zap.String("tenant_id", tenantID),
		zap.String("workflow_id", id),
	)
	return id, nil
}

// Get loads one workflow.
func (s *Store) Get(ctx context.Context, tenantID, id string) (*Definition, error) {
	var rec Record
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewNotFoundError("workflow " + id + " not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}
	return recordToDefinition(&rec)
}

// Replace overwrites the workflow in full, creating it when absent, and
// stamps the last-modified time. There is no version history.
func (s *Store) Replace(ctx context.Context, tenantID, id string, def *Definition) error {
	return s.save(ctx, tenantID, id, def)
}

// Delete removes the workflow. Deleting an absent id is not an error.
func (s *Store) Delete(ctx context.Context, tenantID, id string) error {
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&Record{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}
	return nil
}

func (s *Store) save(ctx context.Context, tenantID, id string, def *Definition) error {
	nodes, err := json.Marshal(def.Nodes)
	if err != nil {
		return fmt.Errorf("failed to encode nodes: %w", err)
	}
	edges, err := json.Marshal(def.Edges)
	if err != nil {
		return fmt.Errorf("failed to encode edges: %w", err)
	}

	rec := Record{
		TenantID:  tenantID,
		ID:        id,
		Name:      def.Name,
		Nodes:     nodes,
		Edges:     edges,
		UpdatedAt: time.Now().UTC(),
	}

	// Last write wins; concurrent writers to the same id are not serialized.
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "id"}},
			UpdateAll: true,
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}
	return nil
}

func recordToDefinition(rec *Record) (*Definition, error) {
	def := Definition{
		ID:        rec.ID,
		TenantID:  rec.TenantID,
		Name:      rec.Name,
		UpdatedAt: rec.UpdatedAt,
	}
	if len(rec.Nodes) > 0 {
		if err := json.Unmarshal(rec.Nodes, &def.Nodes); err != nil {
			return nil, fmt.Errorf("corrupt node list for workflow %s: %w", rec.ID, err)
		}
	}
	if len(rec.Edges) > 0 {
		if err := json.Unmarshal(rec.Edges, &def.Edges); err != nil {
			return nil, fmt.Errorf("corrupt edge list for workflow %s: %w", rec.ID, err)
		}
	}
	return &def, nil
}

func newWorkflowID() string {
	return "wf_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

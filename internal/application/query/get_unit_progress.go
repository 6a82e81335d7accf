package query

import (
	"context"
	"sort"
	"time"

	"github.com/hacklabs/hacklabs-platform/internal/domain/learning"
	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET UNIT PROGRESS QUERY
// Returns one enrollment with its per-module completion map, recomputing the
// percentage from the progress rows so a stale stored value never reaches
// the client.
// ══════════════════════════════════════════════════════════════════════════════

// GetUnitProgressQuery contains the parameters for a progress read.
type GetUnitProgressQuery struct {
	// ProfileID is the local profile id.
	ProfileID string

	// UnitID identifies the unit.
	UnitID string
}

// Validate validates the query.
func (q GetUnitProgressQuery) Validate() error {
	if q.ProfileID == "" {
		return shared.WrapError("query", "GetUnitProgress", shared.ErrValidation, "profile_id is required", nil)
	}
	if q.UnitID == "" {
		return shared.WrapError("query", "GetUnitProgress", shared.ErrValidation, "unit_id is required", nil)
	}
	return nil
}

// ModuleProgressDTO is the read model for one module's state.
type ModuleProgressDTO struct {
	ModuleID    string     `json:"module_id"`
	Title       string     `json:"title"`
	Position    int        `json:"position"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// GetUnitProgressResult is the assembled progress view.
type GetUnitProgressResult struct {
	UnitID             string              `json:"unit_id"`
	UnitTitle          string              `json:"unit_title"`
	UnitType           string              `json:"unit_type"`
	ProgressPercentage int                 `json:"progress_percentage"`
	CompletedModules   int                 `json:"completed_modules"`
	TotalModules       int                 `json:"total_modules"`
	Modules            []ModuleProgressDTO `json:"modules"`
	EnrolledAt         time.Time           `json:"enrolled_at"`
}

// GetUnitProgressHandler handles progress reads.
type GetUnitProgressHandler struct {
	catalog     learning.CatalogRepository
	enrollments learning.EnrollmentRepository
	progress    learning.ModuleProgressRepository
}

// NewGetUnitProgressHandler creates a new GetUnitProgressHandler.
func NewGetUnitProgressHandler(
	catalog learning.CatalogRepository,
	enrollments learning.EnrollmentRepository,
	progress learning.ModuleProgressRepository,
) *GetUnitProgressHandler {
	return &GetUnitProgressHandler{
		catalog:     catalog,
		enrollments: enrollments,
		progress:    progress,
	}
}

// Handle executes the progress read.
func (h *GetUnitProgressHandler) Handle(ctx context.Context, query GetUnitProgressQuery) (*GetUnitProgressResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	unit, err := h.catalog.GetUnit(ctx, query.UnitID)
	if err != nil {
		return nil, err
	}

	enrollment, err := h.enrollments.Get(ctx, query.ProfileID, query.UnitID)
	if err != nil {
		return nil, err
	}

	modules, err := h.catalog.ListModules(ctx, query.UnitID)
	if err != nil {
		return nil, err
	}

	rows, err := h.progress.ListByUnit(ctx, query.ProfileID, query.UnitID)
	if err != nil {
		return nil, err
	}

	byModule := make(map[string]*learning.ModuleProgress, len(rows))
	for _, row := range rows {
		byModule[row.ModuleID] = row
	}

	result := &GetUnitProgressResult{
		UnitID:       unit.ID,
		UnitTitle:    unit.Title,
		UnitType:     string(unit.Type),
		TotalModules: len(modules),
		Modules:      make([]ModuleProgressDTO, 0, len(modules)),
		EnrolledAt:   enrollment.CreatedAt,
	}

	for _, m := range modules {
		dto := ModuleProgressDTO{
			ModuleID: m.ID,
			Title:    m.Title,
			Position: m.Position,
		}
		if row, ok := byModule[m.ID]; ok {
			dto.IsCompleted = row.IsCompleted
			dto.CompletedAt = row.CompletedAt
		}
		if dto.IsCompleted {
			result.CompletedModules++
		}
		result.Modules = append(result.Modules, dto)
	}

	sort.Slice(result.Modules, func(i, j int) bool {
		return result.Modules[i].Position < result.Modules[j].Position
	})

	set := learning.NewProgressSet(rows)
	result.ProgressPercentage = set.Percentage(len(modules))

	return result, nil
}

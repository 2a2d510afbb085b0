package service

import (
	"context"

	"github.com/pkg/errors"

	"task-tracker/internal/department"
)

// VisibilityResolver turns a viewer's department into the staff IDs it may see.
type VisibilityResolver struct {
	staff StaffStore
}

func NewVisibilityResolver(staff StaffStore) *VisibilityResolver {
	return &VisibilityResolver{staff: staff}
}

// VisibleStaffIDs returns every staff ID in a department visible from dept.
// A nil department sees nobody. Store failures come back as
// ErrVisibilityLookup and must not be read as an empty result.
func (r *VisibilityResolver) VisibleStaffIDs(ctx context.Context, dept *string) ([]uint, error) {
	if dept == nil {
		return nil, nil
	}
	ids, err := r.staff.IDsByDepartments(ctx, department.Visible(*dept))
	if err != nil {
		return nil, errors.Wrapf(ErrVisibilityLookup, "department %q: %v", *dept, err)
	}
	return ids, nil
}

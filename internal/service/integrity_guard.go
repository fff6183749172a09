package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/cnhs-records-api/internal/models"
	"github.com/noah-isme/cnhs-records-api/internal/repository"
	appErrors "github.com/noah-isme/cnhs-records-api/pkg/errors"
)

// IntegrityGuard checks referential rules before mutations. Every check is
// a read; callers run check and write inside RecordStore.Serialize.
type IntegrityGuard struct {
	store   *repository.RecordStore
	years   activeYearReader
	metrics *MetricsService
	logger  *zap.Logger
}

// NewIntegrityGuard constructs the guard.
func NewIntegrityGuard(store *repository.RecordStore, years activeYearReader, metrics *MetricsService, logger *zap.Logger) *IntegrityGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntegrityGuard{store: store, years: years, metrics: metrics, logger: logger}
}

// CanDelete reports whether the record may be removed and, when it may not,
// a human-readable reason.
func (g *IntegrityGuard) CanDelete(ctx context.Context, collection, id string) (bool, string) {
	switch collection {
	case repository.CollectionClasses:
		if n := g.ActiveEnrollmentCount(ctx, id); n > 0 {
			return false, fmt.Sprintf("section has %d active enrollment(s)", n)
		}
	case repository.CollectionSubjects:
		n := len(g.store.Classes.Find(ctx, func(c models.Class) bool { return c.SubjectID == id }))
		if n > 0 {
			return false, fmt.Sprintf("subject is assigned to %d class(es)", n)
		}
	case repository.CollectionTeachers:
		n := len(g.store.Classes.Find(ctx, func(c models.Class) bool { return c.TeacherID == id }))
		if n > 0 {
			return false, fmt.Sprintf("teacher is assigned to %d class(es)", n)
		}
	case repository.CollectionParents:
		return g.canDeleteParent(ctx, id)
	case repository.CollectionStudents:
		n := len(g.store.Enrollments.Find(ctx, func(e models.Enrollment) bool { return e.StudentID == id }))
		if n > 0 {
			return false, fmt.Sprintf("student has %d enrollment(s)", n)
		}
	}
	return true, ""
}

func (g *IntegrityGuard) canDeleteParent(ctx context.Context, id string) (bool, string) {
	links := g.store.ParentLinks.Find(ctx, func(l models.ParentLink) bool { return l.ParentID == id })
	if len(links) > 0 {
		return false, fmt.Sprintf("parent is linked to %d student(s)", len(links))
	}
	parent, err := g.store.Parents.Get(ctx, id)
	if err != nil {
		return true, ""
	}
	// Records imported before links existed reference parents by name only.
	name := parent.DisplayName()
	if name == "" {
		return true, ""
	}
	named := g.store.Students.Any(ctx, func(s models.Student) bool {
		return strings.EqualFold(s.FatherName, name) ||
			strings.EqualFold(s.MotherName, name) ||
			strings.EqualFold(s.GuardianName, name)
	})
	if named {
		return false, "parent is named on a student record"
	}
	return true, ""
}

// CheckDelete wraps CanDelete into a REFERENCED error.
func (g *IntegrityGuard) CheckDelete(ctx context.Context, collection, id string) error {
	ok, reason := g.CanDelete(ctx, collection, id)
	if ok {
		return nil
	}
	return g.reject(appErrors.ErrReferenced, "cannot delete "+id+": "+reason)
}

// CheckAdviser rejects an adviser class when another class of the same
// section and year already carries the flag.
func (g *IntegrityGuard) CheckAdviser(ctx context.Context, class models.Class) error {
	if !class.IsAdviser {
		return nil
	}
	existing := g.store.Classes.Find(ctx, func(c models.Class) bool {
		return c.ID != class.ID && c.IsAdviser && c.SameSection(class)
	})
	if len(existing) == 0 {
		return nil
	}
	name := existing[0].TeacherID
	if teacher, err := g.store.Teachers.Get(ctx, existing[0].TeacherID); err == nil {
		name = teacher.FormalName()
	}
	return g.reject(appErrors.ErrAdviserConflict, name+" is already the adviser for this section")
}

// ActiveEnrollmentCount counts active enrollments of a class.
func (g *IntegrityGuard) ActiveEnrollmentCount(ctx context.Context, classID string) int {
	return len(g.store.Enrollments.Find(ctx, func(e models.Enrollment) bool {
		return e.ClassID == classID && e.Status == models.EnrollmentStatusActive
	}))
}

// CheckCapacity rejects when the class has no free seat.
func (g *IntegrityGuard) CheckCapacity(ctx context.Context, classID string) error {
	class, err := g.store.Classes.Get(ctx, classID)
	if err != nil {
		return notFound(err, "class not found")
	}
	capacity := class.MaxCapacity
	if capacity <= 0 {
		capacity = models.DefaultClassCapacity
	}
	if active := g.ActiveEnrollmentCount(ctx, classID); active >= capacity {
		return g.reject(appErrors.ErrCapacityReached, fmt.Sprintf("class %s is full (%d/%d)", classID, active, capacity))
	}
	return nil
}

// CheckWritableYear rejects writes to classes outside the active school year.
func (g *IntegrityGuard) CheckWritableYear(ctx context.Context, schoolYear string) error {
	if g.years == nil {
		return nil
	}
	active, err := g.years.ActiveYear(ctx)
	if err != nil {
		return internalErr(err, "failed to resolve active year")
	}
	if schoolYear != active {
		return g.reject(appErrors.ErrArchived, "school year "+schoolYear+" is archived")
	}
	return nil
}

func (g *IntegrityGuard) reject(base *appErrors.Error, message string) error {
	g.metrics.RecordGuardRejection(base.Code)
	g.logger.Debug("mutation rejected", zap.String("code", base.Code), zap.String("reason", message))
	return appErrors.Clone(base, message)
}

package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/cnhs-records-api/internal/models"
	"github.com/noah-isme/cnhs-records-api/internal/repository"
	appErrors "github.com/noah-isme/cnhs-records-api/pkg/errors"
	"github.com/noah-isme/cnhs-records-api/pkg/query"
)

// LinkParentRequest links a parent to a student.
type LinkParentRequest struct {
	StudentID    string `json:"studentId" validate:"required"`
	Relationship string `json:"relationship" validate:"required"`
}

var parentSortKeys = map[string]func(models.Parent) string{
	"id":   func(p models.Parent) string { return p.ID },
	"name": func(p models.Parent) string { return p.LastName + " " + p.FirstName },
}

// ParentService handles parent and guardian contacts and their links to students.
type ParentService struct {
	store     *repository.RecordStore
	guard     *IntegrityGuard
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewParentService constructs the service.
func NewParentService(store *repository.RecordStore, guard *IntegrityGuard, activity activityRecorder, validate *validator.Validate, logger *zap.Logger) *ParentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParentService{store: store, guard: guard, activity: activity, validator: validate, logger: logger}
}

// List filters, sorts and paginates parents.
func (s *ParentService) List(ctx context.Context, filter models.ParentFilter) ([]models.Parent, *models.Pagination, error) {
	matched := query.Filter(s.store.Parents.List(ctx), func(p models.Parent) bool {
		return query.MatchesText(filter.Search, p.ID, p.FirstName, p.LastName, p.ContactNumber, p.Email)
	})
	var sorted *query.SortState
	if key, ok := parentSortKeys[filter.SortBy]; ok {
		sorted = &query.SortState{Key: filter.SortBy, Direction: query.ParseDirection(filter.SortOrder)}
		matched = query.Sort(matched, key, sorted.Direction)
	}
	page := query.Paginate(matched, filter.Page, filter.PageSize)
	return page.Items, sortedPagination(page, sorted), nil
}

// Get returns a parent by id.
func (s *ParentService) Get(ctx context.Context, id string) (*models.Parent, error) {
	parent, err := s.store.Parents.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "parent not found")
	}
	return &parent, nil
}

// Create registers a parent.
func (s *ParentService) Create(ctx context.Context, input models.Parent) (*models.Parent, error) {
	input.Normalize()
	if err := s.validator.Struct(input); err != nil {
		return nil, invalid(err, "invalid parent payload")
	}
	err := s.store.Serialize(ctx, func(ctx context.Context) error {
		id, err := s.store.Parents.NextID(ctx)
		if err != nil {
			return internalErr(err, "failed to allocate parent id")
		}
		input.ID = id
		if _, err := s.store.Parents.Put(ctx, input); err != nil {
			return internalErr(err, "failed to create parent")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordActivity(ctx, s.activity, models.ActivityParentReg, "REGISTERED PARENT RECORD: "+input.ID)
	return &input, nil
}

// Update replaces a parent's profile. A rename is copied onto every linked
// student's name field first; if the parent write then fails the students
// are put back.
func (s *ParentService) Update(ctx context.Context, id string, input models.Parent) (*models.Parent, error) {
	input.ID = id
	input.Normalize()
	if err := s.validator.Struct(input); err != nil {
		return nil, invalid(err, "invalid parent payload")
	}
	err := s.store.Serialize(ctx, func(ctx context.Context) error {
		previous, err := s.store.Parents.Get(ctx, id)
		if err != nil {
			return notFound(err, "parent not found")
		}
		var before []models.Student
		if previous.DisplayName() != input.DisplayName() {
			if before, err = s.propagateName(ctx, input); err != nil {
				return err
			}
		}
		if _, err := s.store.Parents.Put(ctx, input); err != nil {
			if restoreErr := s.store.Students.PutMany(ctx, before); restoreErr != nil {
				s.logger.Error("failed to restore students after parent update", zap.String("parent_id", id), zap.Error(restoreErr))
			}
			return internalErr(err, "failed to update parent")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordActivity(ctx, s.activity, models.ActivityParentUpdate, "MODIFIED PARENT RECORD: "+id)
	return &input, nil
}

// Delete removes a parent that no student references.
func (s *ParentService) Delete(ctx context.Context, id string) error {
	err := s.store.Serialize(ctx, func(ctx context.Context) error {
		if !s.store.Parents.Exists(ctx, id) {
			return appErrors.Clone(appErrors.ErrNotFound, "parent not found")
		}
		if err := s.guard.CheckDelete(ctx, repository.CollectionParents, id); err != nil {
			return err
		}
		if err := s.store.Parents.Delete(ctx, id); err != nil {
			return notFound(err, "failed to delete parent")
		}
		return nil
	})
	if err != nil {
		return err
	}
	recordActivity(ctx, s.activity, models.ActivityParentDelete, "PURGED PARENT RECORD: "+id)
	return nil
}

// Link associates a parent with a student and writes the parent's name
// into the student field matching the relationship.
func (s *ParentService) Link(ctx context.Context, parentID string, req LinkParentRequest) (*models.ParentLink, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid link payload")
	}
	relationship := strings.ToUpper(strings.TrimSpace(req.Relationship))
	var link models.ParentLink
	err := s.store.Serialize(ctx, func(ctx context.Context) error {
		parent, err := s.store.Parents.Get(ctx, parentID)
		if err != nil {
			return notFound(err, "parent not found")
		}
		student, err := s.store.Students.Get(ctx, req.StudentID)
		if err != nil {
			return notFound(err, "student not found")
		}
		exists := s.store.ParentLinks.Any(ctx, func(l models.ParentLink) bool {
			return l.ParentID == parentID && l.StudentID == req.StudentID
		})
		if exists {
			return appErrors.Clone(appErrors.ErrDuplicate, "parent is already linked to student")
		}
		id, err := s.store.ParentLinks.NextID(ctx)
		if err != nil {
			return internalErr(err, "failed to allocate link id")
		}
		link = models.ParentLink{ID: id, ParentID: parentID, StudentID: student.ID, Relationship: relationship}
		if _, err := s.store.ParentLinks.Put(ctx, link); err != nil {
			return internalErr(err, "failed to link parent")
		}
		applyParentName(&student, relationship, parent.DisplayName(), parent.ContactNumber)
		if _, err := s.store.Students.Put(ctx, student); err != nil {
			return internalErr(err, "failed to update student parent fields")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordActivity(ctx, s.activity, models.ActivityParentLink, "LINKED PARENT "+parentID+" TO STUDENT "+req.StudentID)
	return &link, nil
}

// Unlink removes the link and clears the student field still naming the parent.
func (s *ParentService) Unlink(ctx context.Context, parentID, studentID string) error {
	err := s.store.Serialize(ctx, func(ctx context.Context) error {
		links := s.store.ParentLinks.Find(ctx, func(l models.ParentLink) bool {
			return l.ParentID == parentID && l.StudentID == studentID
		})
		if len(links) == 0 {
			return appErrors.Clone(appErrors.ErrNotFound, "link not found")
		}
		if err := s.store.ParentLinks.Delete(ctx, links[0].ID); err != nil {
			return notFound(err, "failed to unlink parent")
		}
		parent, err := s.store.Parents.Get(ctx, parentID)
		if err != nil {
			return nil
		}
		student, err := s.store.Students.Get(ctx, studentID)
		if err != nil {
			return nil
		}
		if clearParentName(&student, links[0].Relationship, parent.DisplayName()) {
			if _, err := s.store.Students.Put(ctx, student); err != nil {
				return internalErr(err, "failed to update student parent fields")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	recordActivity(ctx, s.activity, models.ActivityParentLink, "UNLINKED PARENT "+parentID+" FROM STUDENT "+studentID)
	return nil
}

// Students lists the students linked to a parent.
func (s *ParentService) Students(ctx context.Context, parentID string) ([]models.LinkedStudent, error) {
	if !s.store.Parents.Exists(ctx, parentID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "parent not found")
	}
	links := s.store.ParentLinks.Find(ctx, func(l models.ParentLink) bool { return l.ParentID == parentID })
	out := make([]models.LinkedStudent, 0, len(links))
	for _, l := range links {
		student, err := s.store.Students.Get(ctx, l.StudentID)
		if err != nil {
			continue
		}
		out = append(out, models.LinkedStudent{Link: l, Student: student, Relationship: l.Relationship})
	}
	return out, nil
}

// StudentParents lists the parents linked to a student.
func (s *ParentService) StudentParents(ctx context.Context, studentID string) ([]models.LinkedParent, error) {
	if !s.store.Students.Exists(ctx, studentID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	links := s.store.ParentLinks.Find(ctx, func(l models.ParentLink) bool { return l.StudentID == studentID })
	out := make([]models.LinkedParent, 0, len(links))
	for _, l := range links {
		parent, err := s.store.Parents.Get(ctx, l.ParentID)
		if err != nil {
			continue
		}
		out = append(out, models.LinkedParent{Link: l, Parent: parent, Relationship: l.Relationship})
	}
	return out, nil
}

// propagateName rewrites the parent's name on every linked student and
// returns the students as they were before.
func (s *ParentService) propagateName(ctx context.Context, parent models.Parent) ([]models.Student, error) {
	links := s.store.ParentLinks.Find(ctx, func(l models.ParentLink) bool { return l.ParentID == parent.ID })
	before := make([]models.Student, 0, len(links))
	updated := make([]models.Student, 0, len(links))
	for _, l := range links {
		student, err := s.store.Students.Get(ctx, l.StudentID)
		if err != nil {
			continue
		}
		before = append(before, student)
		applyParentName(&student, l.Relationship, parent.DisplayName(), parent.ContactNumber)
		updated = append(updated, student)
	}
	if err := s.store.Students.PutMany(ctx, updated); err != nil {
		return nil, internalErr(err, "failed to propagate parent name")
	}
	return before, nil
}

func applyParentName(student *models.Student, relationship, name, contact string) {
	switch relationship {
	case models.RelationshipFather:
		student.FatherName = name
	case models.RelationshipMother:
		student.MotherName = name
	default:
		student.GuardianName = name
		student.GuardianRelationship = relationship
		if contact != "" {
			student.GuardianContact = contact
		}
	}
}

func clearParentName(student *models.Student, relationship, name string) bool {
	switch {
	case relationship == models.RelationshipFather && strings.EqualFold(student.FatherName, name):
		student.FatherName = ""
	case relationship == models.RelationshipMother && strings.EqualFold(student.MotherName, name):
		student.MotherName = ""
	case relationship != models.RelationshipFather && relationship != models.RelationshipMother &&
		strings.EqualFold(student.GuardianName, name):
		student.GuardianName = ""
		student.GuardianRelationship = ""
		student.GuardianContact = ""
	default:
		return false
	}
	return true
}

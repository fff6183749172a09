package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/cnhs-records-api/internal/models"
	"github.com/noah-isme/cnhs-records-api/internal/repository"
	appErrors "github.com/noah-isme/cnhs-records-api/pkg/errors"
	"github.com/noah-isme/cnhs-records-api/pkg/query"
)

// activityRecorder appends entries to the activity log.
type activityRecorder interface {
	Record(ctx context.Context, category, action string)
}

// activeYearReader resolves the school year open for writes.
type activeYearReader interface {
	ActiveYear(ctx context.Context) (string, error)
}

func notFound(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return appErrors.Clone(appErrors.ErrNotFound, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func internalErr(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func invalid(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func paginationOf[T any](page query.Page[T]) *models.Pagination {
	return &models.Pagination{
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalCount: page.TotalCount,
		TotalPages: page.TotalPages,
	}
}

// sortedPagination adds the active sort and the state a second click on the
// same column would request.
func sortedPagination[T any](page query.Page[T], sorted *query.SortState) *models.Pagination {
	p := paginationOf(page)
	if sorted == nil {
		return p
	}
	next := sorted.Toggle(sorted.Key)
	p.Sort = &models.SortMeta{
		Key:           sorted.Key,
		Direction:     string(sorted.Direction),
		NextDirection: string(next.Direction),
	}
	return p
}

// sortKey pads integers so that lexical order matches numeric order.
func sortKey(n int) string {
	return fmt.Sprintf("%06d", n)
}

func recordActivity(ctx context.Context, rec activityRecorder, category, action string) {
	if rec != nil {
		rec.Record(ctx, category, action)
	}
}

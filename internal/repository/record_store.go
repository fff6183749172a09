package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/cnhs-records-api/internal/models"
)

// Collection names; each is stored under the configured key prefix.
const (
	CollectionSubjects    = "subjects"
	CollectionTeachers    = "teachers"
	CollectionClasses     = "classes"
	CollectionStudents    = "students"
	CollectionEnrollments = "enrollments"
	CollectionReportCards = "report_cards"
	CollectionParents     = "parents"
	CollectionParentLinks = "parent_links"
	CollectionActivityLog = "activity_log"
	CollectionReportJobs  = "report_jobs"
)

// Scalar settings keys.
const (
	KeyActiveYear = "active_year"
	KeySeeded     = "data_seeded_v1"
)

// RecordStoreOptions tunes the store.
type RecordStoreOptions struct {
	KeyPrefix      string
	ActivityLimit  int
	ReportJobLimit int
}

// LoadReport lists startup diagnostics for collections that could not be decoded.
type LoadReport struct {
	Diagnostics []string `json:"diagnostics"`
}

// RecordStore owns every entity collection and the single writer lock.
type RecordStore struct {
	kv     KVStore
	prefix string
	logger *zap.Logger

	writeMu sync.Mutex

	Subjects    *Collection[models.Subject]
	Teachers    *Collection[models.Teacher]
	Classes     *Collection[models.Class]
	Students    *Collection[models.Student]
	Enrollments *Collection[models.Enrollment]
	ReportCards *Collection[models.ReportCard]
	Parents     *Collection[models.Parent]
	ParentLinks *Collection[models.ParentLink]
	Activity    *Collection[models.ActivityLog]
	ReportJobs  *Collection[models.ReportJob]
}

// NewRecordStore wires the collections over kv.
func NewRecordStore(kv KVStore, opts RecordStoreOptions, logger *zap.Logger) *RecordStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ActivityLimit <= 0 {
		opts.ActivityLimit = 50
	}
	if opts.ReportJobLimit <= 0 {
		opts.ReportJobLimit = 200
	}
	p := opts.KeyPrefix
	return &RecordStore{
		kv:          kv,
		prefix:      p,
		logger:      logger,
		Subjects:    NewCollection(kv, p, CollectionSubjects, func(s models.Subject) string { return s.ID }, CollectionOptions{IDPrefix: "SUB"}),
		Teachers:    NewCollection(kv, p, CollectionTeachers, func(t models.Teacher) string { return t.ID }, CollectionOptions{IDPrefix: "T"}),
		Classes:     NewCollection(kv, p, CollectionClasses, func(c models.Class) string { return c.ID }, CollectionOptions{IDPrefix: "CLS"}),
		Students:    NewCollection(kv, p, CollectionStudents, func(s models.Student) string { return s.ID }, CollectionOptions{IDPrefix: "S"}),
		Enrollments: NewCollection(kv, p, CollectionEnrollments, func(e models.Enrollment) string { return e.ID }, CollectionOptions{}),
		ReportCards: NewCollection(kv, p, CollectionReportCards, func(r models.ReportCard) string { return r.ID }, CollectionOptions{}),
		Parents:     NewCollection(kv, p, CollectionParents, func(pr models.Parent) string { return pr.ID }, CollectionOptions{IDPrefix: "P"}),
		ParentLinks: NewCollection(kv, p, CollectionParentLinks, func(l models.ParentLink) string { return l.ID }, CollectionOptions{IDPrefix: "PL"}),
		Activity:    NewCollection(kv, p, CollectionActivityLog, func(a models.ActivityLog) string { return a.ID }, CollectionOptions{Limit: opts.ActivityLimit}),
		ReportJobs:  NewCollection(kv, p, CollectionReportJobs, func(j models.ReportJob) string { return j.ID }, CollectionOptions{Limit: opts.ReportJobLimit}),
	}
}

type loader interface {
	Load(ctx context.Context) (string, error)
	Key() string
}

// Load reads every collection from the KV store.
func (s *RecordStore) Load(ctx context.Context) (*LoadReport, error) {
	report := &LoadReport{Diagnostics: []string{}}
	for _, l := range s.loaders() {
		diagnostic, err := l.Load(ctx)
		if err != nil {
			return nil, err
		}
		if diagnostic != "" {
			s.logger.Warn("record collection reset", zap.String("key", l.Key()), zap.String("diagnostic", diagnostic))
			report.Diagnostics = append(report.Diagnostics, diagnostic)
		}
	}
	return report, nil
}

func (s *RecordStore) loaders() []loader {
	return []loader{s.Subjects, s.Teachers, s.Classes, s.Students, s.Enrollments, s.ReportCards, s.Parents, s.ParentLinks, s.Activity, s.ReportJobs}
}

// Serialize runs fn while holding the single writer lock so that a
// check-then-write sequence cannot interleave with another mutation.
// fn must not call Serialize again.
func (s *RecordStore) Serialize(ctx context.Context, fn func(ctx context.Context) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// GetValue decodes the scalar stored under name into dest. It reports false
// when the key is absent or does not decode.
func (s *RecordStore) GetValue(ctx context.Context, name string, dest interface{}) (bool, error) {
	raw, err := s.kv.Get(ctx, s.prefix+name)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.logger.Warn("stored value ignored", zap.String("key", s.prefix+name), zap.Error(err))
		return false, nil
	}
	return true, nil
}

// SetValue encodes value as JSON under name.
func (s *RecordStore) SetValue(ctx context.Context, name string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.kv.Set(ctx, s.prefix+name, payload); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}

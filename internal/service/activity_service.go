package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/cnhs-records-api/internal/models"
	"github.com/noah-isme/cnhs-records-api/internal/repository"
)

const defaultActivityUser = "ADMIN_PORTAL"

// ActivityServiceConfig tunes the activity feed.
type ActivityServiceConfig struct {
	DefaultUser      string
	SubscriberBuffer int
}

// ActivityService appends to the bounded activity log and fans new entries
// out to live subscribers.
type ActivityService struct {
	store   *repository.RecordStore
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ActivityServiceConfig
	now     func() time.Time

	mu          sync.RWMutex
	subscribers map[int]chan models.ActivityLog
	listeners   []func(models.ActivityLog)
	nextSub     int
}

// NewActivityService constructs the service.
func NewActivityService(store *repository.RecordStore, metrics *MetricsService, cfg ActivityServiceConfig, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultUser == "" {
		cfg.DefaultUser = defaultActivityUser
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = 16
	}
	return &ActivityService{
		store:       store,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
		subscribers: make(map[int]chan models.ActivityLog),
	}
}

// ColorFor maps a category to the feed colour.
func ColorFor(category string) string {
	switch {
	case category == models.ActivitySystemUpdate:
		return models.ActivityColorSystem
	case strings.HasSuffix(category, "_DELETE"):
		return models.ActivityColorDelete
	default:
		return models.ActivityColorDefault
	}
}

// Record appends an entry. Failures are logged and never surface to the
// mutation that triggered them.
func (s *ActivityService) Record(ctx context.Context, category, action string) {
	user, ok := ActorFromContext(ctx)
	if !ok {
		user = s.cfg.DefaultUser
	}
	entry := models.ActivityLog{
		ID:        uuid.NewString(),
		Action:    action,
		User:      user,
		Timestamp: s.now().UTC(),
		Category:  category,
		Color:     ColorFor(category),
	}
	if _, err := s.store.Activity.Put(ctx, entry); err != nil {
		s.logger.Warn("failed to append activity", zap.String("category", category), zap.Error(err))
		return
	}
	s.metrics.RecordActivity(category)
	s.publish(entry)
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns the whole log.
func (s *ActivityService) Recent(ctx context.Context, limit int) []models.ActivityLog {
	entries := s.store.Activity.List(ctx)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// Subscribe registers a live feed. The returned cancel func must be called
// once the consumer goes away. Entries are dropped for consumers that fall
// behind.
func (s *ActivityService) Subscribe() (<-chan models.ActivityLog, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan models.ActivityLog, s.cfg.SubscriberBuffer)
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// OnRecord registers a synchronous callback run after every appended entry.
func (s *ActivityService) OnRecord(fn func(models.ActivityLog)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *ActivityService) publish(entry models.ActivityLog) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, fn := range s.listeners {
		fn(entry)
	}
	for id, ch := range s.subscribers {
		select {
		case ch <- entry:
		default:
			s.logger.Debug("activity subscriber lagging", zap.Int("subscriber", id))
		}
	}
}

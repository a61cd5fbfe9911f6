package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	railsight "github.com/railsight/railsight"
)

// Memory is the in-memory store variant used by the demo server and tests.
// All methods are safe for concurrent use.
type Memory struct {
	mu            sync.RWMutex
	users         map[string]railsight.DirectoryRecord
	metrics       railsight.DashboardMetrics
	notifications []railsight.Notification
	reports       []railsight.Report
	grievances    []railsight.Grievance
	part          railsight.PartRecord
}

// NewMemory returns a store seeded the way a fresh server boots: zeroed
// dashboard metrics, two notifications, and the sample part record.
func NewMemory() *Memory {
	return &Memory{
		users:         make(map[string]railsight.DirectoryRecord),
		notifications: seedNotifications(time.Now()),
		part:          defaultSamplePart(),
	}
}

func (s *Memory) GetUserByName(_ context.Context, name string) (railsight.DirectoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.users[name]
	if !ok {
		return railsight.DirectoryRecord{}, railsight.ErrUserNotFound
	}
	return record, nil
}

func (s *Memory) PutUser(_ context.Context, record railsight.DirectoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[record.User.Name] = record
	return nil
}

func (s *Memory) Metrics(_ context.Context) (railsight.DashboardMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.metrics, nil
}

func (s *Memory) UpdateMetrics(_ context.Context, patch railsight.MetricsPatch) (railsight.DashboardMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics = applyPatch(s.metrics, patch)
	return s.metrics, nil
}

func (s *Memory) Notifications(_ context.Context) ([]railsight.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]railsight.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out, nil
}

func (s *Memory) Reports(_ context.Context) ([]railsight.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]railsight.Report, len(s.reports))
	copy(out, s.reports)
	return out, nil
}

func (s *Memory) Grievances(_ context.Context) ([]railsight.Grievance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]railsight.Grievance, len(s.grievances))
	copy(out, s.grievances)
	return out, nil
}

func (s *Memory) AddGrievance(_ context.Context, description, photo string) (railsight.Grievance, error) {
	grievance := railsight.Grievance{
		ID:          uuid.NewString(),
		Description: description,
		Photo:       photo,
		Status:      "Open",
		Date:        time.Now().Format(dateLayout),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.grievances = append(s.grievances, grievance)
	return grievance, nil
}

func (s *Memory) SamplePart(_ context.Context) (railsight.PartRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.part, nil
}

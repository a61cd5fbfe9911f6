package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	railsight "github.com/railsight/railsight"
)

// Redis is the durable store variant. Documents are JSON blobs under the
// configured key prefix; list documents (notifications, reports, grievances)
// are stored whole, read-modify-write. Missing documents fall back to the
// same defaults the memory variant seeds.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis creates a Redis-backed store. prefix namespaces all keys;
// "rs" is used when empty.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "rs"
	}
	return &Redis{client: client, prefix: prefix}
}

func (s *Redis) key(name string) string {
	return s.prefix + ":" + name
}

func (s *Redis) userKey(name string) string {
	return s.prefix + ":user:" + name
}

func (s *Redis) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Redis) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

type storedUser struct {
	User         railsight.User `json:"user"`
	PasswordHash string         `json:"passwordHash,omitempty"`
}

func (s *Redis) GetUserByName(ctx context.Context, name string) (railsight.DirectoryRecord, error) {
	var doc storedUser
	found, err := s.getJSON(ctx, s.userKey(name), &doc)
	if err != nil {
		return railsight.DirectoryRecord{}, err
	}
	if !found {
		return railsight.DirectoryRecord{}, railsight.ErrUserNotFound
	}
	return railsight.DirectoryRecord{User: doc.User, PasswordHash: doc.PasswordHash}, nil
}

func (s *Redis) PutUser(ctx context.Context, record railsight.DirectoryRecord) error {
	return s.setJSON(ctx, s.userKey(record.User.Name), storedUser{
		User:         record.User,
		PasswordHash: record.PasswordHash,
	})
}

func (s *Redis) Metrics(ctx context.Context) (railsight.DashboardMetrics, error) {
	var metrics railsight.DashboardMetrics
	if _, err := s.getJSON(ctx, s.key("metrics"), &metrics); err != nil {
		return railsight.DashboardMetrics{}, err
	}
	return metrics, nil
}

// UpdateMetrics is read-modify-write without a transaction; concurrent
// writers race with last-writer-wins semantics.
func (s *Redis) UpdateMetrics(ctx context.Context, patch railsight.MetricsPatch) (railsight.DashboardMetrics, error) {
	metrics, err := s.Metrics(ctx)
	if err != nil {
		return railsight.DashboardMetrics{}, err
	}

	metrics = applyPatch(metrics, patch)
	if err := s.setJSON(ctx, s.key("metrics"), metrics); err != nil {
		return railsight.DashboardMetrics{}, err
	}
	return metrics, nil
}

func (s *Redis) Notifications(ctx context.Context) ([]railsight.Notification, error) {
	var notifications []railsight.Notification
	found, err := s.getJSON(ctx, s.key("notifications"), &notifications)
	if err != nil {
		return nil, err
	}
	if !found {
		return seedNotifications(time.Now()), nil
	}
	return notifications, nil
}

func (s *Redis) Reports(ctx context.Context) ([]railsight.Report, error) {
	var reports []railsight.Report
	if _, err := s.getJSON(ctx, s.key("reports"), &reports); err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []railsight.Report{}
	}
	return reports, nil
}

func (s *Redis) Grievances(ctx context.Context) ([]railsight.Grievance, error) {
	var grievances []railsight.Grievance
	if _, err := s.getJSON(ctx, s.key("grievances"), &grievances); err != nil {
		return nil, err
	}
	if grievances == nil {
		grievances = []railsight.Grievance{}
	}
	return grievances, nil
}

func (s *Redis) AddGrievance(ctx context.Context, description, photo string) (railsight.Grievance, error) {
	grievance := railsight.Grievance{
		ID:          uuid.NewString(),
		Description: description,
		Photo:       photo,
		Status:      "Open",
		Date:        time.Now().Format(dateLayout),
	}

	grievances, err := s.Grievances(ctx)
	if err != nil {
		return railsight.Grievance{}, err
	}
	grievances = append(grievances, grievance)
	if err := s.setJSON(ctx, s.key("grievances"), grievances); err != nil {
		return railsight.Grievance{}, err
	}
	return grievance, nil
}

func (s *Redis) SamplePart(ctx context.Context) (railsight.PartRecord, error) {
	var part railsight.PartRecord
	found, err := s.getJSON(ctx, s.key("part"), &part)
	if err != nil {
		return railsight.PartRecord{}, err
	}
	if !found {
		return defaultSamplePart(), nil
	}
	return part, nil
}

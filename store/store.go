// Package store persists the platform's documents: dashboard metrics, user
// profiles, notifications, reports, grievances, and the sample part detail.
//
// Two implementations exist: [Memory] for the demo server and tests, and
// [Redis] for durable deployments. Neither applies
// transactions across documents; concurrent dashboard-metrics writers race
// with last-writer-wins semantics, which is accepted for this data.
package store

import (
	"context"
	"errors"
	"time"

	railsight "github.com/railsight/railsight"
)

// ErrUnavailable wraps backend transport failures.
var ErrUnavailable = errors.New("store unavailable")

const dateLayout = "2006-01-02"

// Store is the document persistence contract shared by the HTTP API and the
// server command.
type Store interface {
	railsight.UserDirectory

	PutUser(ctx context.Context, record railsight.DirectoryRecord) error

	Metrics(ctx context.Context) (railsight.DashboardMetrics, error)
	UpdateMetrics(ctx context.Context, patch railsight.MetricsPatch) (railsight.DashboardMetrics, error)

	Notifications(ctx context.Context) ([]railsight.Notification, error)
	Reports(ctx context.Context) ([]railsight.Report, error)

	Grievances(ctx context.Context) ([]railsight.Grievance, error)
	AddGrievance(ctx context.Context, description, photo string) (railsight.Grievance, error)

	SamplePart(ctx context.Context) (railsight.PartRecord, error)
}

func applyPatch(m railsight.DashboardMetrics, patch railsight.MetricsPatch) railsight.DashboardMetrics {
	if patch.Tracked != nil {
		m.Tracked = *patch.Tracked
	}
	if patch.ActiveIssues != nil {
		m.ActiveIssues = *patch.ActiveIssues
	}
	if patch.Maintenance != nil {
		m.Maintenance = *patch.Maintenance
	}
	return m
}

func defaultSamplePart() railsight.PartRecord {
	return railsight.PartRecord{
		ID:            "sample123",
		Name:          "Brake Pad",
		Description:   "High-quality brake pad for wagon.",
		Status:        "Operational",
		LastInspected: "2024-05-30",
	}
}

func seedNotifications(now time.Time) []railsight.Notification {
	return []railsight.Notification{
		{
			ID:        "1",
			Title:     "Component Inspection Due",
			Message:   "Component ABC-123 requires inspection",
			Timestamp: now,
			Type:      "inspection",
		},
		{
			ID:        "2",
			Title:     "Maintenance Alert",
			Message:   "Scheduled maintenance for DEF-456",
			Timestamp: now,
			Type:      "maintenance",
		},
	}
}

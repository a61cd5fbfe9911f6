package railsight

import (
	"context"
	"time"
)

// User is the identity record issued at login and carried by the client
// session. ID and Email default to the login name when the directory has no
// stored record for it.
type User struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture"`
}

// DirectoryRecord is a stored user entry as returned by a [UserDirectory].
// PasswordHash is an Argon2id PHC string; it is empty for records created
// before credential verification was enabled.
type DirectoryRecord struct {
	User         User
	PasswordHash string
}

// UserDirectory looks up stored user records by login name. Implementations
// return [ErrUserNotFound] when no record exists; in accept-any credential
// mode the Gateway then synthesizes a user from the login name.
type UserDirectory interface {
	GetUserByName(ctx context.Context, name string) (DirectoryRecord, error)
}

// Claims are the verified contents of a bearer token.
type Claims struct {
	Name      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// LoginResult is returned by [Gateway.Login].
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// DashboardMetrics is the tracked-component summary shown on the home screen.
// Concurrent writers race with last-writer-wins semantics; that is accepted
// for this data.
type DashboardMetrics struct {
	Tracked      int `json:"tracked"`
	ActiveIssues int `json:"activeIssues"`
	Maintenance  int `json:"maintenance"`
}

// MetricsPatch is a partial dashboard-metrics update. Nil fields are left
// unchanged.
type MetricsPatch struct {
	Tracked      *int `json:"tracked,omitempty"`
	ActiveIssues *int `json:"activeIssues,omitempty"`
	Maintenance  *int `json:"maintenance,omitempty"`
}

// Notification is a single inbox entry.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
}

// Report is an inspection report summary.
type Report struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
	Date   string `json:"date"`
}

// Grievance is a public grievance filed from the field, optionally with a
// photo reference.
type Grievance struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Photo       string `json:"photo,omitempty"`
	Status      string `json:"status"`
	Date        string `json:"date"`
}

// PartRecord is the detail view of a tracked component.
type PartRecord struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Status        string `json:"status"`
	LastInspected string `json:"lastInspected"`
}

// Package store provides durable keyed storage for reports, forum
// content, officers, and archived voice submissions.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound - the referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPersistence marks storage-layer failures. Services wrap store
	// errors with this sentinel so callers can distinguish a lost write
	// from a validation rejection.
	ErrPersistence = errors.New("persistence failure")
)

// IncidentReport is an anonymous citizen report. Write-once; only the
// Notified flag transitions, and only false to true after a confirmed
// notifier delivery.
type IncidentReport struct {
	ID           int64
	Title        string
	Description  string
	Location     string
	IncidentTime string
	CreatedAt    time.Time
	Notified     bool
}

// ForumPost is an anonymous citizen question. ReplyCount and IsAnswered
// are derived from reply rows and recomputed, never incremented blindly.
type ForumPost struct {
	ID                int64
	Content           string
	Category          string
	AuthorAnonymousID string
	CreatedAt         time.Time
	ReplyCount        int
	IsAnswered        bool
}

// ForumReply is an officer's answer. Append-only; a reply row exists
// only if its creator was an authenticated officer at submission time.
type ForumReply struct {
	ID                 int64
	PostID             int64
	Content            string
	OfficerID          string
	OfficerDisplayName string
	CreatedAt          time.Time
}

// OfficerRecord is the stored officer directory entry. The credential
// hash never leaves the store/identity boundary.
type OfficerRecord struct {
	BadgeID        string
	DisplayName    string
	CredentialHash string
	Role           string
}

// AudioArchive keeps a voice submission's source audio alongside the
// transcript it produced.
type AudioArchive struct {
	ID              int64
	SessionID       string
	Audio           []byte
	Transcript      string
	DurationSeconds float64
	CreatedAt       time.Time
}

// Stats are the aggregate counters shown on the service dashboard.
type Stats struct {
	TotalReports int64
	TotalPosts   int64
	TotalReplies int64
	ReportsToday int64
}

// DataStore is the interface consumed by the intake, forum, and
// identity services. The concrete implementation is *Store (pgx-backed).
type DataStore interface {
	CreateReport(ctx context.Context, r *IncidentReport) (int64, error)
	MarkReportNotified(ctx context.Context, id int64) error
	GetReport(ctx context.Context, id int64) (*IncidentReport, error)

	CreatePost(ctx context.Context, p *ForumPost) (int64, error)
	GetPost(ctx context.Context, id int64) (*ForumPost, error)
	RecentPosts(ctx context.Context, limit int) ([]ForumPost, error)
	CreateReply(ctx context.Context, r *ForumReply) (int64, error)
	RepliesForPost(ctx context.Context, postID int64) ([]ForumReply, error)

	GetOfficer(ctx context.Context, badgeID string) (*OfficerRecord, error)
	UpsertOfficer(ctx context.Context, o *OfficerRecord) error

	SaveAudioArchive(ctx context.Context, a *AudioArchive) (int64, error)

	Stats(ctx context.Context) (*Stats, error)
	Close()
}

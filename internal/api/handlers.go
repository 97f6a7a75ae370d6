// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package api

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vireo-app/vireo/internal/auth"
	"github.com/vireo-app/vireo/internal/events"
	"github.com/vireo-app/vireo/internal/models"
	"github.com/vireo-app/vireo/internal/recommend"
	"github.com/vireo-app/vireo/internal/search"
	"github.com/vireo-app/vireo/internal/upload"
)

// Search result limits, matching the platform's established behavior.
const (
	videoSearchLimit = 50
	userSearchLimit  = 10
	historyListLimit = 50
)

// UserStore is the persistence surface the user handlers need.
type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id, name, bio, avatarURL string) error
	GetByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

// VideoStore is the persistence surface the video handlers need.
type VideoStore interface {
	Create(ctx context.Context, v models.Video) (*models.Video, error)
	GetVideo(ctx context.Context, id string) (*models.Video, error)
	GetVideosByIDs(ctx context.Context, ids []string) ([]models.Video, error)
	ByAuthor(ctx context.Context, authorID string) ([]models.Video, error)
	Delete(ctx context.Context, id, authorID string) error
	IncrementViews(ctx context.Context, id string) error
}

// LikeStore is the persistence surface for likes and collections.
type LikeStore interface {
	Like(ctx context.Context, userID, videoID string) error
	Unlike(ctx context.Context, userID, videoID string) error
	Collect(ctx context.Context, userID, videoID string) error
	Uncollect(ctx context.Context, userID, videoID string) error
	LikedVideoIDs(ctx context.Context, userID string) ([]string, error)
	CollectedVideoIDs(ctx context.Context, userID string) ([]string, error)
	VideoStats(ctx context.Context, videoID, userID string) (*models.VideoStats, error)
}

// CommentStore is the persistence surface for comments and votes.
type CommentStore interface {
	Create(ctx context.Context, videoID, authorID, text, imageURL string) (*models.Comment, error)
	ListByVideo(ctx context.Context, videoID, userID string) ([]models.Comment, error)
	Delete(ctx context.Context, commentID, authorID string) error
	Vote(ctx context.Context, commentID, userID string, vote int) error
}

// HistoryStore is the persistence surface for view history.
type HistoryStore interface {
	RecordView(ctx context.Context, userID, videoID string, viewedAt time.Time) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.HistoryEntry, error)
	Delete(ctx context.Context, userID, videoID string) error
}

// SearchIndex is the full-text index surface used by handlers: the
// intersection of search.Indexer and search.Searcher.
type SearchIndex interface {
	IndexVideo(ctx context.Context, doc search.VideoDocument) error
	DeleteVideo(ctx context.Context, id string) error
	IndexUser(ctx context.Context, doc search.UserDocument) error
	SearchVideos(ctx context.Context, query string, limit int) ([]string, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]string, error)
}

// FeedService serves recommendation feed pages.
type FeedService interface {
	FetchPage(ctx context.Context, userID, seedID, rawCursor string) (models.FeedPage, error)
}

// FeedbackPublisher publishes view-feedback events to the pipeline.
type FeedbackPublisher interface {
	Publish(ctx context.Context, event *events.FeedbackEvent) error
}

// TicketIssuer signs direct-to-bucket upload tickets.
type TicketIssuer interface {
	Issue(category upload.Category) (*upload.Ticket, error)
}

// Handlers bundles every HTTP handler with its dependencies.
type Handlers struct {
	users     UserStore
	videos    VideoStore
	likes     LikeStore
	comments  CommentStore
	histories HistoryStore

	search      SearchIndex
	recommender recommend.Recommender
	feed        FeedService
	feedback    FeedbackPublisher
	tickets     TicketIssuer

	jwt      *auth.JWTManager
	password *auth.PasswordHasher
	revoked  auth.RevocationStore

	readyProbe func(ctx context.Context) error

	logger zerolog.Logger
}

// HandlersConfig carries the dependencies for NewHandlers.
type HandlersConfig struct {
	Users     UserStore
	Videos    VideoStore
	Likes     LikeStore
	Comments  CommentStore
	Histories HistoryStore

	Search      SearchIndex
	Recommender recommend.Recommender
	Feed        FeedService
	Feedback    FeedbackPublisher
	Tickets     TicketIssuer

	JWT      *auth.JWTManager
	Password *auth.PasswordHasher
	Revoked  auth.RevocationStore

	// ReadyProbe reports whether downstream dependencies are reachable.
	// Typically this pings the database.
	ReadyProbe func(ctx context.Context) error

	Logger zerolog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(cfg HandlersConfig) *Handlers {
	return &Handlers{
		users:       cfg.Users,
		videos:      cfg.Videos,
		likes:       cfg.Likes,
		comments:    cfg.Comments,
		histories:   cfg.Histories,
		search:      cfg.Search,
		recommender: cfg.Recommender,
		feed:        cfg.Feed,
		feedback:    cfg.Feedback,
		tickets:     cfg.Tickets,
		jwt:         cfg.JWT,
		password:    cfg.Password,
		revoked:     cfg.Revoked,
		readyProbe:  cfg.ReadyProbe,
		logger:      cfg.Logger.With().Str("component", "api").Logger(),
	}
}

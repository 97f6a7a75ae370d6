// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/vireo-app/vireo/internal/auth"
	"github.com/vireo-app/vireo/internal/config"
	"github.com/vireo-app/vireo/internal/events"
	"github.com/vireo-app/vireo/internal/logging"
	"github.com/vireo-app/vireo/internal/models"
	"github.com/vireo-app/vireo/internal/recommend"
	"github.com/vireo-app/vireo/internal/search"
	"github.com/vireo-app/vireo/internal/upload"
)

// fakeBackend implements every store and client interface the handlers
// depend on, backed by maps.
type fakeBackend struct {
	mu sync.Mutex

	users     map[string]*models.User
	videos    map[string]*models.Video
	liked     map[string]map[string]bool // userID -> videoID
	collected map[string]map[string]bool
	comments  map[string]*models.Comment
	history   map[string][]models.HistoryEntry

	videoSearchIDs []string
	userSearchIDs  []string
	indexedVideos  []string
	deletedVideos  []string
	indexedUsers   []string

	feedbacks []string // "kind user item"
	items     []string
	published []*events.FeedbackEvent

	feedPage models.FeedPage
	feedErr  error

	nextID int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		users:     make(map[string]*models.User),
		videos:    make(map[string]*models.Video),
		liked:     make(map[string]map[string]bool),
		collected: make(map[string]map[string]bool),
		comments:  make(map[string]*models.Comment),
		history:   make(map[string][]models.HistoryEntry),
	}
}

func (f *fakeBackend) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

// UserStore

func (f *fakeBackend) Create(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Name == name || u.Email == email {
			return nil, models.ErrAlreadyExists
		}
	}
	u := &models.User{ID: f.id("u"), Name: name, Email: email, PasswordHash: passwordHash, CreatedAt: time.Now()}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeBackend) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, models.ErrNotFound
}

func (f *fakeBackend) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeBackend) UpdateProfile(ctx context.Context, id, name, bio, avatarURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.Name, u.Bio, u.AvatarURL = name, bio, avatarURL
	return nil
}

func (f *fakeBackend) GetByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

// VideoStore

func (f *fakeBackend) CreateVideo(v models.Video) *models.Video {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v.ID == "" {
		v.ID = f.id("v")
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	f.videos[v.ID] = &v
	return &v
}

func (f *fakeBackend) Create2(ctx context.Context, v models.Video) (*models.Video, error) {
	return f.CreateVideo(v), nil
}

func (f *fakeBackend) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.videos[id]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, models.ErrNotFound
}

func (f *fakeBackend) GetVideosByIDs(ctx context.Context, ids []string) ([]models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Video
	for _, id := range ids {
		if v, ok := f.videos[id]; ok {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeBackend) ByAuthor(ctx context.Context, authorID string) ([]models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Video
	for _, v := range f.videos {
		if v.AuthorID == authorID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeBackend) Delete(ctx context.Context, id, authorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.videos[id]
	if !ok {
		return models.ErrNotFound
	}
	if v.AuthorID != authorID {
		return models.ErrForbidden
	}
	delete(f.videos, id)
	return nil
}

func (f *fakeBackend) IncrementViews(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.videos[id]; ok {
		v.Views++
	}
	return nil
}

// LikeStore

func (f *fakeBackend) rel(m map[string]map[string]bool, userID string) map[string]bool {
	if m[userID] == nil {
		m[userID] = make(map[string]bool)
	}
	return m[userID]
}

func (f *fakeBackend) Like(ctx context.Context, userID, videoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := f.rel(f.liked, userID)
	if set[videoID] {
		return models.ErrAlreadyExists
	}
	set[videoID] = true
	return nil
}

func (f *fakeBackend) Unlike(ctx context.Context, userID, videoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := f.rel(f.liked, userID)
	if !set[videoID] {
		return models.ErrNotFound
	}
	delete(set, videoID)
	return nil
}

func (f *fakeBackend) Collect(ctx context.Context, userID, videoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := f.rel(f.collected, userID)
	if set[videoID] {
		return models.ErrAlreadyExists
	}
	set[videoID] = true
	return nil
}

func (f *fakeBackend) Uncollect(ctx context.Context, userID, videoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := f.rel(f.collected, userID)
	if !set[videoID] {
		return models.ErrNotFound
	}
	delete(set, videoID)
	return nil
}

func (f *fakeBackend) LikedVideoIDs(ctx context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for id := range f.rel(f.liked, userID) {
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeBackend) CollectedVideoIDs(ctx context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for id := range f.rel(f.collected, userID) {
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeBackend) VideoStats(ctx context.Context, videoID, userID string) (*models.VideoStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &models.VideoStats{}
	for _, set := range f.liked {
		if set[videoID] {
			stats.Likes++
		}
	}
	for _, c := range f.comments {
		if c.VideoID == videoID {
			stats.Comments++
		}
	}
	if userID != "" {
		stats.CurrentUser = &models.VideoUserState{
			Liked:     f.rel(f.liked, userID)[videoID],
			Collected: f.rel(f.collected, userID)[videoID],
		}
	}
	return stats, nil
}

// CommentStore

func (f *fakeBackend) CreateComment(ctx context.Context, videoID, authorID, text, imageURL string) (*models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &models.Comment{
		ID:        f.id("c"),
		VideoID:   videoID,
		Text:      text,
		ImageURL:  imageURL,
		Author:    models.User{ID: authorID},
		CreatedAt: time.Now(),
	}
	f.comments[c.ID] = c
	return c, nil
}

func (f *fakeBackend) ListByVideo(ctx context.Context, videoID, userID string) ([]models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Comment
	for _, c := range f.comments {
		if c.VideoID == videoID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeBackend) DeleteComment(ctx context.Context, commentID, authorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[commentID]
	if !ok {
		return models.ErrNotFound
	}
	if c.Author.ID != authorID {
		return models.ErrForbidden
	}
	delete(f.comments, commentID)
	return nil
}

func (f *fakeBackend) Vote(ctx context.Context, commentID, userID string, vote int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.comments[commentID]; !ok {
		return models.ErrNotFound
	}
	return nil
}

// HistoryStore

func (f *fakeBackend) RecordView(ctx context.Context, userID, videoID string, viewedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[userID] = append(f.history[userID], models.HistoryEntry{
		Video:    models.Video{ID: videoID},
		ViewedAt: viewedAt,
	})
	return nil
}

func (f *fakeBackend) ListByUser(ctx context.Context, userID string, limit int) ([]models.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history[userID], nil
}

func (f *fakeBackend) DeleteHistory(ctx context.Context, userID, videoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.history[userID]
	for i, e := range entries {
		if e.Video.ID == videoID {
			f.history[userID] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

// SearchIndex

func (f *fakeBackend) IndexVideo(ctx context.Context, doc search.VideoDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexedVideos = append(f.indexedVideos, doc.ID)
	return nil
}

func (f *fakeBackend) DeleteVideo(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedVideos = append(f.deletedVideos, id)
	return nil
}

func (f *fakeBackend) IndexUser(ctx context.Context, doc search.UserDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexedUsers = append(f.indexedUsers, doc.ID)
	return nil
}

func (f *fakeBackend) SearchVideos(ctx context.Context, query string, limit int) ([]string, error) {
	return f.videoSearchIDs, nil
}

func (f *fakeBackend) SearchUsers(ctx context.Context, query string, limit int) ([]string, error) {
	return f.userSearchIDs, nil
}

// recommend.Recommender

func (f *fakeBackend) InsertFeedback(ctx context.Context, userID, itemID string, kind recommend.FeedbackType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedbacks = append(f.feedbacks, fmt.Sprintf("+%s %s %s", kind, userID, itemID))
	return nil
}

func (f *fakeBackend) DeleteFeedback(ctx context.Context, userID, itemID string, kind recommend.FeedbackType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedbacks = append(f.feedbacks, fmt.Sprintf("-%s %s %s", kind, userID, itemID))
	return nil
}

func (f *fakeBackend) InsertItem(ctx context.Context, itemID string, categories []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, itemID)
	return nil
}

func (f *fakeBackend) DeleteItem(ctx context.Context, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, "-"+itemID)
	return nil
}

func (f *fakeBackend) Recommend(ctx context.Context, userID string, n, offset int) ([]string, error) {
	return nil, nil
}

// FeedService

func (f *fakeBackend) FetchPage(ctx context.Context, userID, seedID, rawCursor string) (models.FeedPage, error) {
	if f.feedErr != nil {
		return models.FeedPage{}, f.feedErr
	}
	return f.feedPage, nil
}

// FeedbackPublisher

func (f *fakeBackend) Publish(ctx context.Context, event *events.FeedbackEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, event)
	return nil
}

// adapters so one struct can satisfy interfaces with clashing method
// names (Create, Delete).
type videoStoreAdapter struct{ *fakeBackend }

func (a videoStoreAdapter) Create(ctx context.Context, v models.Video) (*models.Video, error) {
	return a.Create2(ctx, v)
}

type commentStoreAdapter struct{ *fakeBackend }

func (a commentStoreAdapter) Create(ctx context.Context, videoID, authorID, text, imageURL string) (*models.Comment, error) {
	return a.CreateComment(ctx, videoID, authorID, text, imageURL)
}

func (a commentStoreAdapter) Delete(ctx context.Context, commentID, authorID string) error {
	return a.DeleteComment(ctx, commentID, authorID)
}

type historyStoreAdapter struct{ *fakeBackend }

func (a historyStoreAdapter) Delete(ctx context.Context, userID, videoID string) error {
	return a.DeleteHistory(ctx, userID, videoID)
}

type testEnv struct {
	backend *fakeBackend
	router  http.Handler
	jwt     *auth.JWTManager
	revoked auth.RevocationStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := logging.NewTestLogger(io.Discard)

	jwtManager, err := auth.NewJWTManager(&config.SecurityConfig{
		JWTSecret:      strings.Repeat("k", 32),
		SessionTimeout: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	revoked := auth.NewMemoryRevocationStore()

	backend := newFakeBackend()
	signer := upload.NewSigner(upload.Config{
		Region:          "oss-test",
		Bucket:          "vireo-test",
		AccessKeyID:     "ak",
		AccessKeySecret: "sk",
		TicketExpiry:    time.Hour,
		MaxUploadBytes:  1 << 30,
	})

	handlers := NewHandlers(HandlersConfig{
		Users:       backend,
		Videos:      videoStoreAdapter{backend},
		Likes:       backend,
		Comments:    commentStoreAdapter{backend},
		Histories:   historyStoreAdapter{backend},
		Search:      backend,
		Recommender: backend,
		Feed:        backend,
		Feedback:    backend,
		Tickets:     signer,
		JWT:         jwtManager,
		Password:    auth.NewPasswordHasher(4),
		Revoked:     revoked,
		Logger:      logger,
	})

	router := NewRouter(handlers, auth.NewMiddleware(jwtManager, revoked, logger), config.ServerConfig{
		Host:        "127.0.0.1",
		Port:        0,
		CORSOrigins: []string{"*"},
	}, nil, logger)

	return &testEnv{backend: backend, router: router.Setup(), jwt: jwtManager, revoked: revoked}
}

// seedUser adds a user directly and returns a valid token.
func (e *testEnv) seedUser(t *testing.T, name string) (*models.User, string) {
	t.Helper()
	u, err := e.backend.Create(context.Background(), name, name+"@example.com", "x")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	token, err := e.jwt.GenerateToken(u.ID, u.Name)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return u, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v (body %s)", err, rec.Body.String())
	}
	if !envelope.Success {
		t.Fatalf("response not successful: %s", rec.Body.String())
	}
	if dst != nil {
		if err := json.Unmarshal(envelope.Data, dst); err != nil {
			t.Fatalf("unmarshal data: %v", err)
		}
	}
}

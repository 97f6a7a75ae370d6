// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/vireo-app/vireo/internal/events"
	"github.com/vireo-app/vireo/internal/models"
)

func TestRegisterLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "alice", "email": "Alice@Example.com", "password": "hunter22",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	var reg authResponse
	decodeData(t, rec, &reg)
	if reg.Token == "" {
		t.Error("register returned empty token")
	}
	if reg.User.Email != "alice@example.com" {
		t.Errorf("email = %q, want lowercased", reg.User.Email)
	}
	if len(env.backend.indexedUsers) != 1 {
		t.Errorf("indexed users = %d, want 1", len(env.backend.indexedUsers))
	}

	// Same name again conflicts.
	rec = env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "alice", "email": "other@example.com", "password": "hunter22",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", rec.Code)
	}

	// Login with the registered credentials.
	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "hunter22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var login authResponse
	decodeData(t, rec, &login)

	// The token works against an authenticated endpoint.
	rec = env.do(t, http.MethodGet, "/api/v1/users/me", login.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d", rec.Code)
	}
	var me models.User
	decodeData(t, rec, &me)
	if me.Name != "alice" {
		t.Errorf("me.Name = %q", me.Name)
	}

	// Wrong password is a 401, indistinguishable from unknown email.
	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong!",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "hunter22",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown email status = %d, want 401", rec.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"bad username", map[string]string{"name": "_bad", "email": "a@b.com", "password": "secret1"}},
		{"short password", map[string]string{"name": "bob", "email": "a@b.com", "password": "short"}},
		{"bad email", map[string]string{"name": "bob", "email": "not-an-email", "password": "secret1"}},
		{"missing fields", map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), CodeValidation) {
				t.Errorf("body %q missing validation code", rec.Body.String())
			}
		})
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "alice")

	rec := env.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me before logout = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout = %d, want 401", rec.Code)
	}
}

func TestGetUserStripsPrivateFields(t *testing.T) {
	env := newTestEnv(t)
	u, _ := env.seedUser(t, "alice")

	rec := env.do(t, http.MethodGet, "/api/v1/users/"+u.ID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "@example.com") {
		t.Error("public profile leaked email")
	}
}

func TestCreateVideoRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/videos/", "", map[string]interface{}{
		"title": "t", "url": "https://cdn.example.com/v.mp4",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestCreateVideoProjectsToIndexAndRecommender(t *testing.T) {
	env := newTestEnv(t)
	u, token := env.seedUser(t, "alice")

	rec := env.do(t, http.MethodPost, "/api/v1/videos/", token, map[string]interface{}{
		"title":    "Morning run",
		"url":      "https://cdn.example.com/v.mp4",
		"category": "sports",
		"tags":     []string{"run"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var v models.Video
	decodeData(t, rec, &v)
	if v.AuthorID != u.ID {
		t.Errorf("author = %q, want %q", v.AuthorID, u.ID)
	}
	if len(env.backend.indexedVideos) != 1 || env.backend.indexedVideos[0] != v.ID {
		t.Errorf("indexed videos = %v", env.backend.indexedVideos)
	}
	if len(env.backend.items) != 1 || env.backend.items[0] != v.ID {
		t.Errorf("recommender items = %v", env.backend.items)
	}
}

func TestDeleteVideoOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerToken := env.seedUser(t, "alice")
	_, otherToken := env.seedUser(t, "bob")
	v := env.backend.CreateVideo(models.Video{AuthorID: owner.ID, Title: "t", URL: "u"})

	rec := env.do(t, http.MethodDelete, "/api/v1/videos/"+v.ID, otherToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign delete status = %d, want 403", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/videos/"+v.ID, ownerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner delete status = %d", rec.Code)
	}
	if len(env.backend.deletedVideos) != 1 {
		t.Errorf("search deletions = %v", env.backend.deletedVideos)
	}
	if len(env.backend.items) != 1 || env.backend.items[0] != "-"+v.ID {
		t.Errorf("recommender deletions = %v", env.backend.items)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/videos/"+v.ID, ownerToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestSearchVideosHydratesInOrder(t *testing.T) {
	env := newTestEnv(t)
	v1 := env.backend.CreateVideo(models.Video{Title: "first"})
	v2 := env.backend.CreateVideo(models.Video{Title: "second"})
	env.backend.videoSearchIDs = []string{v2.ID, v1.ID, "missing"}

	rec := env.do(t, http.MethodGet, "/api/v1/videos/search?q=run", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var videos []models.Video
	decodeData(t, rec, &videos)
	if len(videos) != 2 || videos[0].ID != v2.ID || videos[1].ID != v1.ID {
		t.Errorf("videos = %+v, want [%s %s]", videos, v2.ID, v1.ID)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/videos/search", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing q status = %d, want 400", rec.Code)
	}
}

func TestLikeUnlikeForwardsFeedback(t *testing.T) {
	env := newTestEnv(t)
	u, token := env.seedUser(t, "alice")
	v := env.backend.CreateVideo(models.Video{Title: "t"})

	rec := env.do(t, http.MethodPost, "/api/v1/videos/"+v.ID+"/like", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("like status = %d", rec.Code)
	}
	// Liking twice stays idempotent and does not double the feedback.
	rec = env.do(t, http.MethodPost, "/api/v1/videos/"+v.ID+"/like", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second like status = %d", rec.Code)
	}
	if len(env.backend.feedbacks) != 1 || env.backend.feedbacks[0] != "+like "+u.ID+" "+v.ID {
		t.Errorf("feedbacks = %v", env.backend.feedbacks)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/videos/"+v.ID+"/like", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unlike status = %d", rec.Code)
	}
	if len(env.backend.feedbacks) != 2 || env.backend.feedbacks[1] != "-like "+u.ID+" "+v.ID {
		t.Errorf("feedbacks = %v", env.backend.feedbacks)
	}
}

func TestVideoStatsAnonymous(t *testing.T) {
	env := newTestEnv(t)
	u, token := env.seedUser(t, "alice")
	v := env.backend.CreateVideo(models.Video{Title: "t"})
	if err := env.backend.Like(t.Context(), u.ID, v.ID); err != nil {
		t.Fatalf("seed like: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/videos/"+v.ID+"/stats", "", nil)
	var stats models.VideoStats
	decodeData(t, rec, &stats)
	if stats.Likes != 1 {
		t.Errorf("likes = %d, want 1", stats.Likes)
	}
	if stats.CurrentUser != nil {
		t.Error("anonymous stats carried user state")
	}

	rec = env.do(t, http.MethodGet, "/api/v1/videos/"+v.ID+"/stats", token, nil)
	decodeData(t, rec, &stats)
	if stats.CurrentUser == nil || !stats.CurrentUser.Liked {
		t.Errorf("user state = %+v, want liked", stats.CurrentUser)
	}
}

func TestCommentLifecycle(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "alice")
	v := env.backend.CreateVideo(models.Video{Title: "t"})

	rec := env.do(t, http.MethodPost, "/api/v1/videos/"+v.ID+"/comments", token, map[string]string{
		"text": "nice one",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("post comment status = %d, body %s", rec.Code, rec.Body.String())
	}
	var c models.Comment
	decodeData(t, rec, &c)

	rec = env.do(t, http.MethodGet, "/api/v1/videos/"+v.ID+"/comments", "", nil)
	var list []models.Comment
	decodeData(t, rec, &list)
	if len(list) != 1 || list[0].Text != "nice one" {
		t.Errorf("comments = %+v", list)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/videos/"+v.ID+"/comments/"+c.ID+"/vote", token, map[string]int{"vote": 1})
	if rec.Code != http.StatusOK {
		t.Errorf("vote status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/videos/"+v.ID+"/comments/"+c.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("delete comment status = %d", rec.Code)
	}

	// Empty comment text fails validation.
	rec = env.do(t, http.MethodPost, "/api/v1/videos/"+v.ID+"/comments", token, map[string]string{"text": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty comment status = %d, want 400", rec.Code)
	}
}

func TestFeedEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.backend.feedPage = models.FeedPage{
		Videos:     []models.Video{{ID: "v-1"}, {ID: "v-2"}},
		NextCursor: "next",
	}

	rec := env.do(t, http.MethodGet, "/api/v1/feed", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var page models.FeedPage
	decodeData(t, rec, &page)
	if len(page.Videos) != 2 || page.NextCursor != "next" {
		t.Errorf("page = %+v", page)
	}
}

func TestStartedViewPublishesAndBumpsCounter(t *testing.T) {
	env := newTestEnv(t)
	u, token := env.seedUser(t, "alice")
	v := env.backend.CreateVideo(models.Video{Title: "t"})

	rec := env.do(t, http.MethodPost, "/api/v1/videos/"+v.ID+"/views/started", token, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}

	got, err := env.backend.GetVideo(t.Context(), v.ID)
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if got.Views != 1 {
		t.Errorf("views = %d, want 1", got.Views)
	}

	if len(env.backend.published) != 1 {
		t.Fatalf("published = %d events, want 1", len(env.backend.published))
	}
	event := env.backend.published[0]
	if event.Kind != events.KindStarted || event.UserID != u.ID || event.VideoID != v.ID {
		t.Errorf("event = %+v", event)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/videos/"+v.ID+"/views/finished", token, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("finished status = %d", rec.Code)
	}
	if len(env.backend.published) != 2 || env.backend.published[1].Kind != events.KindFinished {
		t.Errorf("second event = %+v", env.backend.published)
	}

	// Finished does not bump the view counter again.
	got, _ = env.backend.GetVideo(t.Context(), v.ID)
	if got.Views != 1 {
		t.Errorf("views after finished = %d, want 1", got.Views)
	}
}

func TestViewEndpointsRequireAuth(t *testing.T) {
	env := newTestEnv(t)
	v := env.backend.CreateVideo(models.Video{Title: "t"})

	for _, path := range []string{"started", "finished"} {
		rec := env.do(t, http.MethodPost, "/api/v1/videos/"+v.ID+"/views/"+path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want %d", path, rec.Code, http.StatusUnauthorized)
		}
	}

	// The rejected calls must leave no trace: no counter bump, no events.
	got, err := env.backend.GetVideo(t.Context(), v.ID)
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if got.Views != 0 {
		t.Errorf("views = %d, want 0", got.Views)
	}
	if len(env.backend.published) != 0 {
		t.Errorf("published = %d events, want 0", len(env.backend.published))
	}
}

func TestHistoriesEndpoints(t *testing.T) {
	env := newTestEnv(t)
	u, token := env.seedUser(t, "alice")

	rec := env.do(t, http.MethodGet, "/api/v1/histories", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous histories status = %d, want 401", rec.Code)
	}

	if err := env.backend.RecordView(t.Context(), u.ID, "v-1", env.backend.users[u.ID].CreatedAt); err != nil {
		t.Fatalf("seed history: %v", err)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/histories", token, nil)
	var entries []models.HistoryEntry
	decodeData(t, rec, &entries)
	if len(entries) != 1 || entries[0].Video.ID != "v-1" {
		t.Errorf("entries = %+v", entries)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/histories/v-1", token, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("delete history status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, "/api/v1/histories/v-1", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestUploadTicket(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "alice")

	rec := env.do(t, http.MethodPost, "/api/v1/uploads/video", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous ticket status = %d, want 401", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/uploads/video", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ticket status = %d, body %s", rec.Code, rec.Body.String())
	}
	var ticket struct {
		Policy    string `json:"policy"`
		Signature string `json:"Signature"`
		Key       string `json:"key"`
	}
	decodeData(t, rec, &ticket)
	if ticket.Policy == "" || ticket.Signature == "" || !strings.HasPrefix(ticket.Key, "video/") {
		t.Errorf("ticket = %+v", ticket)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/uploads/archive", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad category status = %d, want 400", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("readyz = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("metrics = %d", rec.Code)
	}
}

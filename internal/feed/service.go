// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

// Package feed assembles recommendation feed pages.
//
// Pages come from the recommender when it is healthy and degrade to a
// newest-first scan of the video table when it is not. The cursor returned
// with each page is opaque to clients and remembers which source minted it.
package feed

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vireo-app/vireo/internal/feedsession"
	"github.com/vireo-app/vireo/internal/metrics"
	"github.com/vireo-app/vireo/internal/models"
	"github.com/vireo-app/vireo/internal/recommend"
)

// DefaultPageSize is the number of videos per feed page.
const DefaultPageSize = 5

// VideoSource hydrates and enumerates videos. internal/database provides the
// production implementation.
type VideoSource interface {
	// GetVideo returns one video or models.ErrNotFound.
	GetVideo(ctx context.Context, id string) (*models.Video, error)

	// GetVideosByIDs returns the videos that exist among ids, preserving
	// the order of ids. Missing IDs are skipped.
	GetVideosByIDs(ctx context.Context, ids []string) ([]models.Video, error)

	// LatestVideos returns up to limit videos created strictly before the
	// watermark, newest first. A zero watermark means now.
	LatestVideos(ctx context.Context, before time.Time, limit int) ([]models.Video, error)
}

// Service builds feed pages per user.
type Service struct {
	recommender recommend.Recommender
	videos      VideoSource
	pageSize    int
	logger      zerolog.Logger
}

// NewService creates a feed service.
func NewService(rec recommend.Recommender, videos VideoSource, pageSize int, logger zerolog.Logger) *Service {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Service{
		recommender: rec,
		videos:      videos,
		pageSize:    pageSize,
		logger:      logger.With().Str("component", "feed").Logger(),
	}
}

// PageSize returns the configured page size.
func (s *Service) PageSize() int { return s.pageSize }

// FetchPage returns one feed page for userID.
//
// The first page of a deep-linked session carries seedID: the shared video
// is fetched and placed first, and the rest of the page fills around it.
// Later pages pass the cursor from the previous page. userID may be empty
// for anonymous callers, who always get the latest-videos source.
func (s *Service) FetchPage(ctx context.Context, userID, seedID, rawCursor string) (models.FeedPage, error) {
	cur, err := decodeCursor(rawCursor)
	if err != nil {
		return models.FeedPage{}, err
	}

	start := time.Now()
	page, err := s.fetchFrom(ctx, userID, seedID, cur)
	metrics.RecordFeedFetch(time.Since(start), err)
	return page, err
}

func (s *Service) fetchFrom(ctx context.Context, userID, seedID string, cur cursor) (models.FeedPage, error) {
	var page models.FeedPage

	// The seed occupies the head of the very first page.
	if seedID != "" && cur.Offset == 0 && cur.Before == 0 {
		seed, err := s.videos.GetVideo(ctx, seedID)
		if err == nil {
			page.Videos = append(page.Videos, *seed)
		} else {
			// A dead share link still gets a feed.
			s.logger.Warn().Err(err).Str("video_id", seedID).Msg("seed video unavailable")
		}
	}

	need := s.pageSize - len(page.Videos)

	if cur.Source == sourceRecommender && userID != "" {
		videos, next, err := s.recommendedPage(ctx, userID, cur, need)
		if err == nil {
			page.Videos = append(page.Videos, videos...)
			page.NextCursor = next
			return page, nil
		}
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("recommender unavailable, falling back to latest")
	}

	videos, next, err := s.latestPage(ctx, cur, need)
	if err != nil {
		return models.FeedPage{}, err
	}
	page.Videos = append(page.Videos, videos...)
	page.NextCursor = next
	return page, nil
}

// recommendedPage pulls the next window of recommender IDs and hydrates
// them. IDs the database no longer knows are dropped without replacement;
// the next page continues past them.
func (s *Service) recommendedPage(ctx context.Context, userID string, cur cursor, limit int) ([]models.Video, string, error) {
	ids, err := s.recommender.Recommend(ctx, userID, limit, cur.Offset)
	if err != nil {
		return nil, "", err
	}
	if len(ids) == 0 {
		// Recommender exhausted; an empty next cursor ends the feed.
		return nil, "", nil
	}

	videos, err := s.videos.GetVideosByIDs(ctx, ids)
	if err != nil {
		return nil, "", err
	}

	next := encodeCursor(cursor{Source: sourceRecommender, Offset: cur.Offset + len(ids)})
	return videos, next, nil
}

// latestPage scans the video table newest first using the creation-time
// watermark from the cursor.
func (s *Service) latestPage(ctx context.Context, cur cursor, limit int) ([]models.Video, string, error) {
	var before time.Time
	if cur.Before > 0 {
		before = time.UnixMilli(cur.Before)
	}

	videos, err := s.videos.LatestVideos(ctx, before, limit)
	if err != nil {
		return nil, "", err
	}
	if len(videos) == 0 {
		return nil, "", nil
	}

	last := videos[len(videos)-1]
	next := encodeCursor(cursor{Source: sourceLatest, Before: last.CreatedAt.UnixMilli()})
	return videos, next, nil
}

// SessionFetcher adapts the service into a per-session page fetcher bound to
// one user and optional seed. The session core passes the cursor straight
// back, so the seed only applies to the empty-cursor fetch.
func (s *Service) SessionFetcher(userID, seedID string) feedsession.Fetcher {
	return feedsession.FetcherFunc(func(ctx context.Context, rawCursor string, _ int) (feedsession.Page, error) {
		page, err := s.FetchPage(ctx, userID, seedID, rawCursor)
		if err != nil {
			return feedsession.Page{}, err
		}

		items := make([]feedsession.Item, len(page.Videos))
		for i, v := range page.Videos {
			items[i] = feedsession.Item{
				ID:       v.ID,
				Title:    v.Title,
				URL:      v.URL,
				CoverURL: v.CoverURL,
			}
		}
		return feedsession.Page{Items: items, NextCursor: page.NextCursor}, nil
	})
}

// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package websocket

import "github.com/vireo-app/vireo/internal/feedsession"

// remoteSurface forwards playback commands to the connected client. The
// client owns the actual media elements; the server only tells it what
// each one should be doing.
type remoteSurface struct {
	videoID string
	send    func(ServerMessage)
}

func (s *remoteSurface) Play() error {
	s.send(ServerMessage{Type: MessageTypeCommand, VideoID: s.videoID, Action: ActionPlay})
	// Autoplay failures surface on the client; the session treats playback
	// as best-effort either way.
	return nil
}

func (s *remoteSurface) Pause() {
	s.send(ServerMessage{Type: MessageTypeCommand, VideoID: s.videoID, Action: ActionPause})
}

func (s *remoteSurface) Seek(seconds float64) {
	s.send(ServerMessage{Type: MessageTypeCommand, VideoID: s.videoID, Action: ActionSeek, Seconds: seconds})
}

func (s *remoteSurface) SetMuted(muted bool) {
	s.send(ServerMessage{Type: MessageTypeCommand, VideoID: s.videoID, Action: ActionMute, Muted: muted})
}

// remoteSurfaceProvider materializes remoteSurfaces over one connection.
// The session loop is the only caller, so no locking is needed.
type remoteSurfaceProvider struct {
	send     func(ServerMessage)
	surfaces map[string]*remoteSurface
}

func newRemoteSurfaceProvider(send func(ServerMessage)) *remoteSurfaceProvider {
	return &remoteSurfaceProvider{
		send:     send,
		surfaces: make(map[string]*remoteSurface),
	}
}

func (p *remoteSurfaceProvider) Acquire(item feedsession.Item) (feedsession.Surface, error) {
	if s, ok := p.surfaces[item.ID]; ok {
		return s, nil
	}
	s := &remoteSurface{videoID: item.ID, send: p.send}
	p.surfaces[item.ID] = s
	return s, nil
}

func (p *remoteSurfaceProvider) Release(id string) {
	delete(p.surfaces, id)
}

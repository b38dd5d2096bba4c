package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/joshua-takyi/campusplay/internal/models"
	"github.com/joshua-takyi/campusplay/internal/services"
)

const pingInterval = 15 * time.Second

// NewUpgrader accepts websocket handshakes from allowedOrigin, the same
// origin CORS admits, and from clients that send no Origin header.
func NewUpgrader(allowedOrigin string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowedOrigin == "" || origin == allowedOrigin
		},
	}
}

type liveFrame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

const (
	frameSnapshot = "snapshot"
	frameClosed   = "closed"
)

// WatchEvents streams the caller's projected event list on every change.
// The scope and sport query parameters match ListEvents.
func WatchEvents(e *services.EventService, upgrader *websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}
		scope := services.EventScope(c.DefaultQuery("scope", string(services.ScopeOpen)))
		sport := c.Query("sport")
		if _, err := services.ProjectSnapshot(nil, claims.UserID, scope, sport); err != nil {
			respondError(c, err)
			return
		}

		subscriberID := uuid.New().String()
		snapshots, err := e.WatchEvents(subscriberID)
		if err != nil {
			respondError(c, err)
			return
		}
		defer e.UnwatchEvents(subscriberID)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		stream(conn, snapshots, func(events []models.SportsEvent) interface{} {
			views, _ := services.ProjectSnapshot(events, claims.UserID, scope, sport)
			return views
		})
	}
}

// WatchChat streams the ordered message history of one event to a
// participant.
func WatchChat(ch *services.ChatService, upgrader *websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}
		eventID := c.Param("id")

		subscriberID := uuid.New().String()
		msgs, err := ch.Subscribe(c.Request.Context(), eventID, claims.UserID, subscriberID)
		if err != nil {
			respondError(c, err)
			return
		}
		defer ch.Unsubscribe(eventID, subscriberID)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		stream(conn, msgs, func(m []models.ChatMessage) interface{} { return m })
	}
}

// WatchMyProfile streams the caller's own profile after every update.
func WatchMyProfile(p *services.ProfileService, upgrader *websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}

		subscriberID := uuid.New().String()
		profiles, err := p.WatchProfile(c.Request.Context(), claims.UserID, subscriberID)
		if err != nil {
			respondError(c, err)
			return
		}
		defer p.UnwatchProfile(claims.UserID, subscriberID)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		stream(conn, profiles, func(profile models.UserProfile) interface{} { return profile })
	}
}

// stream writes every snapshot from src to conn until src is closed or the
// client goes away.
func stream[T any](conn *websocket.Conn, src <-chan T, render func(T) interface{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	go readUntilClosed(conn, done)

	for {
		select {
		case snap, ok := <-src:
			if !ok {
				_ = conn.WriteJSON(liveFrame{Type: frameClosed})
				return
			}
			if err := conn.WriteJSON(liveFrame{Type: frameSnapshot, Data: render(snap)}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// readUntilClosed drains client frames; the streams are server-push only.
func readUntilClosed(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/shift"
	"github.com/pontaj-digital/pontaj-backend-go/internal/handler/http/response"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/jwt"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/sse"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/validator"
)

// Subscriber hands out event channels per topic.
type Subscriber interface {
	Subscribe(topic string) (chan sse.Event, func())
}

type StreamHandler interface {
	GetToken(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type streamHandlerImpl struct {
	jwtService jwt.Service
	hub        Subscriber
	keepalive  time.Duration
}

func NewStreamHandler(jwtService jwt.Service, hub Subscriber, keepalive time.Duration) StreamHandler {
	if keepalive <= 0 {
		keepalive = 30 * time.Second
	}
	return &streamHandlerImpl{
		jwtService: jwtService,
		hub:        hub,
		keepalive:  keepalive,
	}
}

type streamTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// GetToken generates a short-lived token for SSE connections
func (h *streamHandlerImpl) GetToken(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	token, expiresIn, err := h.jwtService.GenerateSSEToken(actor.UserID, actor.Role)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to generate SSE token", "error", err)
		response.InternalServerError(w, response.Localize(r, "error.internal", "Failed to generate SSE token"))
		return
	}

	response.Success(w, streamTokenResponse{
		Token:     token,
		ExpiresIn: expiresIn,
	})
}

var supervisorRoles = []string{shift.RoleTeamLead, shift.RoleSiteManager, shift.RoleAdmin}

// streamTopic picks what the caller may watch: supervisors one worker or
// everyone, any other role only its own segment.
func streamTopic(userID, role, requested string) string {
	if !validator.IsInSlice(role, supervisorRoles) {
		return userID
	}
	if requested != "" {
		return requested
	}
	return sse.TopicSupervisors
}

// Stream handles the SSE connection for live segment updates
func (h *streamHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	// EventSource cannot set headers, so the token travels in the query
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	userID, role, err := h.jwtService.ValidateSSEToken(tokenStr)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	topic := streamTopic(userID, role, r.URL.Query().Get("worker_id"))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(topic)
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"topic\":%q}\n\n", topic)
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if _, err := event.WriteTo(w); err != nil {
				slog.WarnContext(r.Context(), "Failed to write SSE event", "topic", topic, "error", err)
				continue
			}
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

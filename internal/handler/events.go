package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"campuseats/internal/realtime"
)

type EventHandler struct {
	hub *realtime.Hub
}

func NewEventHandler(hub *realtime.Hub) *EventHandler {
	return &EventHandler{hub: hub}
}

// Stream serves a user's order events over SSE.
func (h *EventHandler) Stream(c *gin.Context) {
	id, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	ch, cancel := h.hub.Subscribe(id)
	defer cancel()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("order", ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/javi11/trackmount/internal/session"
)

// handleListStreams returns currently active read sessions plus a bounded
// history of completed ones.
func (s *Server) handleListStreams(c *fiber.Ctx) error {
	active := s.tracker.Active()
	history := s.tracker.History()

	if active == nil {
		active = []session.ActiveSession{}
	}
	if history == nil {
		history = []session.ActiveSession{}
	}

	return RespondSuccess(c, fiber.Map{
		"active":  active,
		"history": history,
	})
}

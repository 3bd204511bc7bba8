package api

import (
	"bufio"
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/javi11/trackmount/internal/registry"
	"github.com/javi11/trackmount/internal/slogutil"
	"github.com/javi11/trackmount/internal/track"
)

type openTrackRequest struct {
	Ref string `json:"ref"`
}

// handleOpenTrack acquires the track (or bumps its ref count) and returns
// its size and format.
func (s *Server) handleOpenTrack(c *fiber.Ctx) error {
	var req openTrackRequest
	if err := c.BodyParser(&req); err != nil {
		return RespondValidationError(c, "Invalid JSON", err.Error())
	}

	id, err := track.ParseTrackRef(req.Ref)
	if err != nil {
		return RespondValidationError(c, "Invalid track reference", err.Error())
	}

	info, err := s.registry.Open(c.Context(), id)
	if err != nil {
		return RespondServiceUnavailable(c, "Track could not be loaded", "")
	}

	return RespondSuccess(c, fiber.Map{
		"ref":       id.String(),
		"size":      info.Size,
		"format":    info.Format.String(),
		"mime_type": info.Format.MimeType(),
	})
}

type seekTrackRequest struct {
	Ref      string `json:"ref"`
	Position uint64 `json:"position"`
}

func (s *Server) handleSeekTrack(c *fiber.Ctx) error {
	var req seekTrackRequest
	if err := c.BodyParser(&req); err != nil {
		return RespondValidationError(c, "Invalid JSON", err.Error())
	}

	id, err := track.ParseTrackRef(req.Ref)
	if err != nil {
		return RespondValidationError(c, "Invalid track reference", err.Error())
	}

	pos, err := s.registry.Seek(c.Context(), id, req.Position)
	if err != nil {
		if errors.Is(err, registry.ErrNotOpen) {
			return RespondNotFound(c, "Track", "track is not open")
		}
		return RespondInternalError(c, "Seek failed", err.Error())
	}

	return RespondSuccess(c, fiber.Map{"position": pos})
}

type closeTrackRequest struct {
	Ref string `json:"ref"`
}

func (s *Server) handleCloseTrack(c *fiber.Ctx) error {
	var req closeTrackRequest
	if err := c.BodyParser(&req); err != nil {
		return RespondValidationError(c, "Invalid JSON", err.Error())
	}

	id, err := track.ParseTrackRef(req.Ref)
	if err != nil {
		return RespondValidationError(c, "Invalid track reference", err.Error())
	}

	if err := s.registry.Close(c.Context(), id); err != nil {
		if errors.Is(err, registry.ErrNotOpen) {
			return RespondNotFound(c, "Track", "track is not open")
		}
		return RespondInternalError(c, "Close failed", err.Error())
	}

	return RespondMessage(c, "Track closed")
}

// handleReadTrack streams up to limit bytes of an open track as a raw body.
// The track must have been opened first.
func (s *Server) handleReadTrack(c *fiber.Ctx) error {
	id, err := track.ParseTrackRef(c.Query("ref"))
	if err != nil {
		return RespondValidationError(c, "Invalid track reference", err.Error())
	}

	limitParam := c.Query("limit")
	if limitParam == "" {
		return RespondValidationError(c, "Missing limit", "limit query parameter is required")
	}
	limit, err := strconv.ParseUint(limitParam, 10, 32)
	if err != nil {
		return RespondValidationError(c, "Invalid limit", err.Error())
	}

	var offset uint64
	if v := c.Query("offset"); v != "" {
		offset, err = strconv.ParseUint(v, 10, 64)
		if err != nil {
			return RespondValidationError(c, "Invalid offset", err.Error())
		}
	}

	chunkSize := uint64(s.configGetter().Streaming.ChunkSize)
	if v := c.Query("chunk_size"); v != "" {
		chunkSize, err = strconv.ParseUint(v, 10, 32)
		if err != nil {
			return RespondValidationError(c, "Invalid chunk_size", err.Error())
		}
	}

	info, err := s.registry.Info(id)
	if err != nil {
		return RespondNotFound(c, "Track", "track is not open")
	}

	c.Set(fiber.HeaderContentType, info.Format.MimeType())

	// The fasthttp request context is only cancelled on server shutdown, so
	// the session gets its own cancel, fired when the body writer returns.
	// That is how a departed consumer stops the producer.
	ctx, cancel := context.WithCancel(slogutil.With(c.Context(), "remote_ip", c.IP()))
	items := s.runner.Read(ctx, id, offset, uint32(limit), uint32(chunkSize))

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		for item := range items {
			if item.Err != nil {
				s.log.ErrorContext(ctx, "Read session aborted",
					"track_id", id.String(),
					"error", item.Err)
				return
			}
			if len(item.Data) > 0 {
				if _, err := w.Write(item.Data); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
			if item.EOF {
				return
			}
		}
	})

	return nil
}

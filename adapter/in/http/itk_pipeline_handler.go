package http

import (
	"itk_server/core/port/in"
	"itk_server/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// PipelineResponse is the scheduler contract for stage endpoints: a
// human-readable detail plus a processed count.
type PipelineResponse struct {
	Detail    string `json:"detail"`
	Processed int    `json:"processed"`
}

type parseHobbiesRequest struct {
	UserID string `json:"user_id"`
}

type searchEventsRequest struct {
	City  string `json:"city"`
	Limit int    `json:"limit"`
}

type venueRequest struct {
	City         string `json:"city"`
	ForceRefresh bool   `json:"force_refresh"`
}

type userScopedRequest struct {
	UserID string `json:"user_id"`
}

// PipelineHandler exposes the weekly pipeline and its individual stages as
// POST endpoints for the cron scheduler. Auth is applied at the route group.
type PipelineHandler struct {
	pipeline in.PipelineUseCase
	hobbies  in.HobbyParseUseCase
	events   in.EventSearchUseCase
	venues   in.VenueUseCase
	drafts   in.DraftUseCase
	sender   in.SendUseCase
}

func NewPipelineHandler(
	pipeline in.PipelineUseCase,
	hobbies in.HobbyParseUseCase,
	events in.EventSearchUseCase,
	venues in.VenueUseCase,
	drafts in.DraftUseCase,
	sender in.SendUseCase,
) *PipelineHandler {
	return &PipelineHandler{
		pipeline: pipeline,
		hobbies:  hobbies,
		events:   events,
		venues:   venues,
		drafts:   drafts,
		sender:   sender,
	}
}

func (h *PipelineHandler) Register(router fiber.Router) {
	router.Post("/run", h.Run)
	router.Post("/parse-hobbies", h.ParseHobbies)
	router.Post("/search-events", h.SearchEvents)
	router.Post("/discover-venues", h.DiscoverVenues)
	router.Post("/search-venue-events", h.SearchVenueEvents)
	router.Post("/draft-emails", h.DraftEmails)
	router.Post("/send-emails", h.SendEmails)
}

func (h *PipelineHandler) Run(c *fiber.Ctx) error {
	summary := h.pipeline.Run(c.UserContext())
	return c.JSON(summary)
}

func (h *PipelineHandler) ParseHobbies(c *fiber.Ctx) error {
	var req parseHobbiesRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return apperr.BadRequest("user_id must be a valid UUID")
	}

	tags, err := h.hobbies.ParseAndStore(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(PipelineResponse{Detail: "Hobbies parsed", Processed: len(tags)})
}

func (h *PipelineHandler) SearchEvents(c *fiber.Ctx) error {
	var req searchEventsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperr.BadRequest("invalid request body")
		}
	}

	summary, err := h.events.SearchCityLimited(c.UserContext(), req.City, req.Limit)
	if err != nil {
		return err
	}
	return c.JSON(PipelineResponse{Detail: "Events searched", Processed: summary.PairsProcessed})
}

func (h *PipelineHandler) DiscoverVenues(c *fiber.Ctx) error {
	var req venueRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperr.BadRequest("invalid request body")
		}
	}

	var (
		processed int
		err       error
	)
	if req.City != "" {
		processed, err = h.venues.DiscoverCity(c.UserContext(), req.City, req.ForceRefresh)
	} else {
		processed, err = h.venues.DiscoverPilotCities(c.UserContext(), req.ForceRefresh)
	}
	if err != nil {
		return err
	}
	return c.JSON(PipelineResponse{Detail: "Venues discovered", Processed: processed})
}

func (h *PipelineHandler) SearchVenueEvents(c *fiber.Ctx) error {
	var req venueRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperr.BadRequest("invalid request body")
		}
	}

	processed, err := h.venues.RefreshEvents(c.UserContext(), req.City, req.ForceRefresh)
	if err != nil {
		return err
	}
	return c.JSON(PipelineResponse{Detail: "Venue events searched", Processed: processed})
}

func (h *PipelineHandler) DraftEmails(c *fiber.Ctx) error {
	userID, err := optionalUserID(c)
	if err != nil {
		return err
	}

	var processed int
	if userID != nil {
		processed, err = h.drafts.DraftUser(c.UserContext(), *userID)
	} else {
		processed, err = h.drafts.DraftAll(c.UserContext())
	}
	if err != nil {
		return err
	}
	return c.JSON(PipelineResponse{Detail: "Newsletters drafted", Processed: processed})
}

func (h *PipelineHandler) SendEmails(c *fiber.Ctx) error {
	userID, err := optionalUserID(c)
	if err != nil {
		return err
	}

	summary, err := h.sender.SendUnsent(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(PipelineResponse{Detail: "Newsletters sent", Processed: summary.Sent})
}

func optionalUserID(c *fiber.Ctx) (*uuid.UUID, error) {
	var req userScopedRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return nil, apperr.BadRequest("invalid request body")
		}
	}
	if req.UserID == "" {
		return nil, nil
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, apperr.BadRequest("user_id must be a valid UUID")
	}
	return &userID, nil
}

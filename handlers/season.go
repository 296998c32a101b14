package handlers

import (
	"poker-night-ledger/services"

	"github.com/gofiber/fiber/v2"
)

// SeasonHandler exposes the season ledger over HTTP.
type SeasonHandler struct {
	Seasons *services.SeasonService
}

func SetupSeasonRoutes(secured fiber.Router, seasons *services.SeasonService) {
	h := &SeasonHandler{Seasons: seasons}

	secured.Get("/users", h.GetUsers)

	secured.Get("/seasons/active", h.GetActiveSeason)
	secured.Post("/seasons", h.CreateSeason)
	secured.Get("/seasons/:id", h.GetSeason)
	secured.Post("/seasons/:id/start", h.StartSeason)
	secured.Post("/seasons/:id/end", h.EndSeason)
	secured.Patch("/seasons/:id/treasurer", h.UpdateTreasurer)

	secured.Post("/seasons/:id/deposits", h.SubmitDeposit)
	secured.Get("/seasons/:id/deposits", h.GetDepositSubmissions)
	secured.Post("/deposits/:id/review", h.ReviewDeposit)

	secured.Put("/seasons/:id/host-order", h.SaveHostOrder)
	secured.Get("/seasons/:id/host-order", h.GetHostOrder)
}

func (h *SeasonHandler) GetUsers(c *fiber.Ctx) error {
	users, err := h.Seasons.GetUsers()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

func (h *SeasonHandler) GetActiveSeason(c *fiber.Ctx) error {
	season, err := h.Seasons.GetActiveSeason()
	if err != nil {
		return respondError(c, err)
	}
	if season == nil {
		return c.JSON(fiber.Map{"season": nil})
	}
	return c.JSON(fiber.Map{"season": season})
}

func (h *SeasonHandler) GetSeason(c *fiber.Ctx) error {
	season, err := h.Seasons.GetSeason(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(season)
}

func (h *SeasonHandler) CreateSeason(c *fiber.Ctx) error {
	var req struct {
		Name            string `json:"name"`
		TreasurerUserID string `json:"treasurer_user_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	season, err := h.Seasons.CreateSeason(actorID(c), req.TreasurerUserID, req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(season)
}

func (h *SeasonHandler) StartSeason(c *fiber.Ctx) error {
	season, err := h.Seasons.StartSeason(actorID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(season)
}

func (h *SeasonHandler) EndSeason(c *fiber.Ctx) error {
	season, err := h.Seasons.EndSeason(actorID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(season)
}

func (h *SeasonHandler) UpdateTreasurer(c *fiber.Ctx) error {
	var req struct {
		TreasurerUserID string `json:"treasurer_user_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	season, err := h.Seasons.UpdateTreasurer(actorID(c), c.Params("id"), req.TreasurerUserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(season)
}

func (h *SeasonHandler) SubmitDeposit(c *fiber.Ctx) error {
	var req struct {
		PhotoURL string  `json:"photo_url"`
		Note     *string `json:"note"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	submission, member, err := h.Seasons.SubmitDeposit(c.Params("id"), actorID(c), req.PhotoURL, req.Note)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"submission": submission,
		"member":     member,
	})
}

func (h *SeasonHandler) GetDepositSubmissions(c *fiber.Ctx) error {
	submissions, err := h.Seasons.GetDepositSubmissions(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(submissions)
}

func (h *SeasonHandler) ReviewDeposit(c *fiber.Ctx) error {
	var req struct {
		Action     string  `json:"action"`
		ReviewNote *string `json:"review_note"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	submission, member, err := h.Seasons.ReviewDeposit(actorID(c), c.Params("id"), req.Action, req.ReviewNote)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"submission": submission,
		"member":     member,
	})
}

func (h *SeasonHandler) SaveHostOrder(c *fiber.Ctx) error {
	var req struct {
		OrderedUserIDs []string `json:"ordered_user_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	order, err := h.Seasons.SaveHostOrder(c.Params("id"), req.OrderedUserIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}

func (h *SeasonHandler) GetHostOrder(c *fiber.Ctx) error {
	order, err := h.Seasons.GetHostOrder(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}

package handlers

import (
	"time"

	"poker-night-ledger/services"

	"github.com/gofiber/fiber/v2"
)

// SessionHandler exposes the session lifecycle, roster, injections, and
// settlement over HTTP.
type SessionHandler struct {
	Sessions    *services.SessionService
	Roster      *services.RosterService
	Injections  *services.InjectionService
	Settlements *services.SettlementService
}

func SetupSessionRoutes(secured fiber.Router, sessions *services.SessionService, roster *services.RosterService, injections *services.InjectionService, settlements *services.SettlementService) {
	h := &SessionHandler{
		Sessions:    sessions,
		Roster:      roster,
		Injections:  injections,
		Settlements: settlements,
	}

	secured.Get("/seasons/:id/sessions/active", h.GetActiveSession)
	secured.Post("/seasons/:id/sessions", h.ScheduleSession)
	secured.Get("/sessions/:id", h.GetSession)
	secured.Patch("/sessions/:id", h.UpdateScheduledSession)

	secured.Post("/sessions/:id/start", h.StartSession)
	secured.Post("/sessions/:id/in-progress", h.MoveToInProgress)
	secured.Post("/sessions/:id/end", h.EndSession)
	secured.Post("/sessions/:id/finalize", h.FinalizeSession)
	secured.Get("/sessions/:id/finalize-note", h.GetFinalizeNote)
	secured.Get("/sessions/:id/balance-check", h.BalanceCheck)

	secured.Post("/sessions/:id/check-in", h.CheckIn)
	secured.Get("/sessions/:id/participants", h.GetParticipants)
	secured.Post("/participants/:id/confirm", h.ConfirmStart)
	secured.Post("/participants/:id/dispute", h.DisputeStart)
	secured.Post("/participants/:id/remove", h.RemoveParticipant)

	secured.Post("/sessions/:id/injections", h.RequestRebuy)
	secured.Get("/sessions/:id/injections", h.GetInjections)
	secured.Post("/injections/:id/review", h.ReviewInjection)

	secured.Post("/sessions/:id/submissions", h.SubmitEndingStack)
	secured.Get("/sessions/:id/submissions", h.GetSubmissions)
	secured.Post("/submissions/:id/review", h.ReviewEndingSubmission)
}

func (h *SessionHandler) GetActiveSession(c *fiber.Ctx) error {
	session, err := h.Sessions.GetActiveSession(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if session == nil {
		return c.JSON(fiber.Map{"session": nil})
	}
	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	session, err := h.Sessions.GetSession(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

func (h *SessionHandler) ScheduleSession(c *fiber.Ctx) error {
	var req struct {
		HostUserID   string     `json:"host_user_id"`
		ScheduledFor *time.Time `json:"scheduled_for"`
		Location     *string    `json:"location"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	session, err := h.Sessions.ScheduleSession(actorID(c), c.Params("id"), req.HostUserID, req.ScheduledFor, req.Location)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(session)
}

func (h *SessionHandler) UpdateScheduledSession(c *fiber.Ctx) error {
	var req struct {
		HostUserID        *string    `json:"host_user_id"`
		ScheduledFor      *time.Time `json:"scheduled_for"`
		ClearScheduledFor bool       `json:"clear_scheduled_for"`
		Location          *string    `json:"location"`
		ClearLocation     bool       `json:"clear_location"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	session, err := h.Sessions.UpdateScheduledSession(actorID(c), c.Params("id"), services.UpdateScheduledSessionInput{
		HostUserID:        req.HostUserID,
		ScheduledFor:      req.ScheduledFor,
		ClearScheduledFor: req.ClearScheduledFor,
		Location:          req.Location,
		ClearLocation:     req.ClearLocation,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

func (h *SessionHandler) StartSession(c *fiber.Ctx) error {
	session, err := h.Sessions.StartSession(actorID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

func (h *SessionHandler) MoveToInProgress(c *fiber.Ctx) error {
	session, err := h.Sessions.MoveToInProgress(actorID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

func (h *SessionHandler) EndSession(c *fiber.Ctx) error {
	session, err := h.Sessions.EndSession(actorID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

func (h *SessionHandler) FinalizeSession(c *fiber.Ctx) error {
	var req struct {
		OverrideNote string `json:"override_note"`
	}
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	session, members, note, err := h.Sessions.FinalizeSession(actorID(c), c.Params("id"), req.OverrideNote)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"session":       session,
		"members":       members,
		"finalize_note": note,
	})
}

func (h *SessionHandler) GetFinalizeNote(c *fiber.Ctx) error {
	note, err := h.Sessions.GetFinalizeNote(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"finalize_note": note})
}

func (h *SessionHandler) BalanceCheck(c *fiber.Ctx) error {
	result, err := h.Settlements.BalanceCheck(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

func (h *SessionHandler) CheckIn(c *fiber.Ctx) error {
	participant, err := h.Roster.CheckIn(c.Params("id"), actorID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(participant)
}

func (h *SessionHandler) GetParticipants(c *fiber.Ctx) error {
	participants, err := h.Roster.GetSessionParticipants(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]fiber.Map, 0, len(participants))
	for i := range participants {
		p := participants[i]
		out = append(out, fiber.Map{
			"participant": p,
			"status":      services.ParticipantStatus(&p),
		})
	}
	return c.JSON(out)
}

func (h *SessionHandler) ConfirmStart(c *fiber.Ctx) error {
	participant, err := h.Roster.ConfirmStart(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(participant)
}

func (h *SessionHandler) DisputeStart(c *fiber.Ctx) error {
	var req struct {
		Note string `json:"note"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	participant, err := h.Roster.DisputeStart(c.Params("id"), req.Note)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(participant)
}

func (h *SessionHandler) RemoveParticipant(c *fiber.Ctx) error {
	participant, err := h.Roster.RemoveParticipant(c.Params("id"), actorID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(participant)
}

func (h *SessionHandler) RequestRebuy(c *fiber.Ctx) error {
	var req struct {
		ParticipantID string  `json:"participant_id"`
		Type          string  `json:"type"`
		ProofPhotoURL *string `json:"proof_photo_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	injection, err := h.Injections.RequestRebuy(actorID(c), c.Params("id"), req.ParticipantID, req.Type, req.ProofPhotoURL)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(injection)
}

func (h *SessionHandler) GetInjections(c *fiber.Ctx) error {
	injections, err := h.Injections.GetSessionInjections(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(injections)
}

func (h *SessionHandler) ReviewInjection(c *fiber.Ctx) error {
	var req struct {
		Action     string  `json:"action"`
		ReviewNote *string `json:"review_note"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	injection, err := h.Injections.ReviewInjection(actorID(c), c.Params("id"), req.Action, req.ReviewNote)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(injection)
}

func (h *SessionHandler) SubmitEndingStack(c *fiber.Ctx) error {
	var req struct {
		ParticipantID    string  `json:"participant_id"`
		EndingStackCents int64   `json:"ending_stack_cents"`
		PhotoURL         string  `json:"photo_url"`
		Note             *string `json:"note"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	submission, err := h.Settlements.SubmitEndingStack(actorID(c), c.Params("id"), req.ParticipantID, req.EndingStackCents, req.PhotoURL, req.Note)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(submission)
}

func (h *SessionHandler) GetSubmissions(c *fiber.Ctx) error {
	submissions, err := h.Settlements.GetEndingSubmissions(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(submissions)
}

func (h *SessionHandler) ReviewEndingSubmission(c *fiber.Ctx) error {
	var req struct {
		Action     string  `json:"action"`
		ReviewNote *string `json:"review_note"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	submission, err := h.Settlements.ReviewEndingSubmission(actorID(c), c.Params("id"), req.Action, req.ReviewNote)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(submission)
}

package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/recall/pkg/coordinator"
	"github.com/papercomputeco/recall/pkg/memory"
)

// ExtractRequest is the body of POST /v1/memories/extract and POST /v1/chat.
type ExtractRequest struct {
	OwnerID        string `json:"owner_id" validate:"required,max=128"`
	Text           string `json:"text" validate:"required,max=10000"`
	ConversationID string `json:"conversation_id" validate:"max=128"`
}

// SearchRequest is the body of POST /v1/memories/search.
type SearchRequest struct {
	OwnerID string `json:"owner_id" validate:"required,max=128"`
	Query   string `json:"query" validate:"required,max=2000"`

	// Limit is capped by the engine; zero means the default.
	Limit int `json:"limit" validate:"gte=0,lte=100"`
}

// DeleteRequest is the body of POST /v1/memories/delete.
type DeleteRequest struct {
	OwnerID string `json:"owner_id" validate:"required,max=128"`
	Text    string `json:"text" validate:"required,max=2000"`
	Reason  string `json:"reason" validate:"max=256"`
}

// ReconcileRequest is the body of POST /v1/reconcile.
type ReconcileRequest struct {
	OwnerID string `json:"owner_id" validate:"required,max=128"`
}

// StatsResponse is the body of GET /v1/memories/stats.
type StatsResponse struct {
	*coordinator.StatsResult

	// Warning describes store drift when InSync is false.
	Warning string `json:"warning,omitempty"`
}

// HistoryResponse is the body of GET /v1/memories/history.
type HistoryResponse struct {
	OwnerID string                   `json:"owner_id"`
	Events  []memory.RetirementEvent `json:"events"`
}

// handlePing returns a simple liveness response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleHealth reports dependency health. A fully failed engine is a 503.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	report := s.coord.HealthCheck(c.UserContext())
	if report.Overall == coordinator.HealthFailed {
		return c.Status(fiber.StatusServiceUnavailable).JSON(report)
	}
	return c.JSON(report)
}

func (s *Server) handleExtract(c *fiber.Ctx) error {
	var req ExtractRequest
	if err := s.parse(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	res, err := s.coord.ProcessMessage(c.UserContext(), req.OwnerID, req.Text, req.ConversationID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(res)
}

func (s *Server) handleSearch(c *fiber.Ctx) error {
	var req SearchRequest
	if err := s.parse(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	res, err := s.coord.SearchMemories(c.UserContext(), req.OwnerID, req.Query, req.Limit)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(res)
}

func (s *Server) handleDelete(c *fiber.Ctx) error {
	var req DeleteRequest
	if err := s.parse(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	res, err := s.coord.DeleteByContent(c.UserContext(), req.OwnerID, req.Text, req.Reason)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(res)
}

// handleList handles GET /v1/memories.
// Query parameters:
//   - owner_id (required)
//   - category (optional): one of the memory categories
//   - limit (optional): maximum number of records, newest first
func (s *Server) handleList(c *fiber.Ctx) error {
	owner := c.Query("owner_id")
	if owner == "" {
		return badRequest(c, "owner_id query parameter is required")
	}

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			return badRequest(c, "limit must be a non-negative integer")
		}
		limit = parsed
	}

	res, err := s.coord.ListMemories(c.UserContext(), owner, c.Query("category"), limit)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(res)
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	owner := c.Query("owner_id")
	if owner == "" {
		return badRequest(c, "owner_id query parameter is required")
	}

	res, err := s.coord.Stats(c.UserContext(), owner)
	if err != nil {
		return s.fail(c, err)
	}

	out := StatsResponse{StatsResult: res}
	if res.Drift != nil {
		out.Warning = res.Drift.Error()
	}
	return c.JSON(out)
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	owner := c.Query("owner_id")
	if owner == "" {
		return badRequest(c, "owner_id query parameter is required")
	}

	events, err := s.coord.History(c.UserContext(), owner)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(HistoryResponse{OwnerID: owner, Events: events})
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ExtractRequest
	if err := s.parse(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	res, err := s.coord.Chat(c.UserContext(), req.OwnerID, req.Text, req.ConversationID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(res)
}

func (s *Server) handleReconcile(c *fiber.Ctx) error {
	var req ReconcileRequest
	if err := s.parse(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	res, err := s.coord.Reconcile(c.UserContext(), req.OwnerID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(res)
}

// parse decodes the JSON body into req and validates it.
func (s *Server) parse(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return err
	}
	return s.validate.Struct(req)
}

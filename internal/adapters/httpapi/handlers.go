package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bnema/oneiro/internal/domain"
	"github.com/labstack/echo/v4"
)

type startRequest struct {
	Text   string `json:"text"`
	UserID string `json:"userId"`
}

type answerRequest struct {
	Text string `json:"text"`
}

func (s *Server) startDream(c echo.Context) error {
	var body startRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(body.UserID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userId is required")
	}

	result, err := s.sessions.Start(c.Request().Context(), body.Text, domain.UserID(body.UserID))
	if err != nil {
		return s.httpError(err)
	}

	return c.JSON(http.StatusCreated, NewSessionResponse(result.Session, result.Degraded, result.Warnings))
}

func (s *Server) submitAnswer(c echo.Context) error {
	var body answerRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	id := domain.DreamID(c.Param("id"))
	result, err := s.sessions.Answer(c.Request().Context(), id, body.Text)
	if err != nil {
		return s.httpError(err)
	}

	return c.JSON(http.StatusOK, NewSessionResponse(result.Session, result.Degraded, result.Warnings))
}

func (s *Server) getDream(c echo.Context) error {
	view, err := s.sessions.Snapshot(c.Request().Context(), domain.DreamID(c.Param("id")))
	if err != nil {
		return s.httpError(err)
	}

	resp := NewSessionResponse(view.Session, view.Degraded, nil)
	resp.Loading = view.Loading
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) listDreams(c echo.Context) error {
	owner := strings.TrimSpace(c.QueryParam("owner"))
	if owner == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "owner is required")
	}

	records, err := s.dreams.ListByOwner(c.Request().Context(), domain.UserID(owner))
	if err != nil {
		return s.httpError(err)
	}

	out := make([]RecordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, NewRecordResponse(record))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) httpError(err error) error {
	switch {
	case errors.Is(err, domain.ErrEmptyInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrDreamNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case domain.IsServiceFailure(err):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
}

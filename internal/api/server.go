// Package api serves trace generation over HTTP.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/agentx/internal/logger"
	"github.com/samcharles93/agentx/internal/pim"
	"github.com/samcharles93/agentx/internal/profile"
	"github.com/samcharles93/agentx/internal/trace"
)

type Server struct {
	store *TraceStore
	cfg   pim.Config
	log   logger.Logger
	clock func() time.Time
}

// NewServer returns a server generating traces against cfg's topology.
// A request may override the element width but never the topology.
func NewServer(store *TraceStore, cfg pim.Config, log logger.Logger) *Server {
	if store == nil {
		store = NewTraceStore(DefaultStoreLimit)
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Server{
		store: store,
		cfg:   cfg,
		log:   log.With("component", "api"),
		clock: time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/v1/profiles", s.handleProfiles)

	e.POST("/v1/traces", s.handleCreateTrace)
	e.GET("/v1/traces/:id", s.handleGetTrace)
	e.GET("/v1/traces/:id/content", s.handleTraceContent)
	e.DELETE("/v1/traces/:id", s.handleDeleteTrace)
}

func (s *Server) handleProfiles(c *echo.Context) error {
	return c.JSON(http.StatusOK, ProfileList{Object: "list", Data: profile.All()})
}

func (s *Server) handleCreateTrace(c *echo.Context) error {
	req, err := decodeJSON[TraceRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "", fmt.Sprintf("invalid JSON body: %v", err))
	}
	decode, cfg, err := s.resolve(req)
	if err != nil {
		return writeGenerationError(c, err)
	}

	start := s.clock()
	prog, err := pim.Generate(c.Request().Context(), decode, cfg)
	if err != nil {
		if ctxErr := c.Request().Context().Err(); ctxErr != nil {
			return ctxErr
		}
		s.log.Warn("trace generation failed", "model", decode.Profile.Label, "error", err)
		return writeGenerationError(c, err)
	}

	summary := pim.Summarize(decode, cfg, prog)
	rec := s.store.Put(summary, prog.Commands, s.clock())
	s.log.Info("trace generated",
		"id", rec.ID,
		"model", summary.Model,
		"commands", summary.Stats.Total,
		"elapsed", s.clock().Sub(start),
	)
	return c.JSON(http.StatusOK, traceObject(rec))
}

func (s *Server) resolve(req TraceRequest) (profile.Decode, pim.Config, error) {
	if strings.TrimSpace(req.Model) == "" {
		return profile.Decode{}, pim.Config{}, newInvalidRequest("model", "model is required")
	}
	params := profile.Params{
		BatchSize:  1,
		ContextLen: req.ContextLen,
		MaxLen:     profile.DefaultMaxLen,
	}
	if req.BatchSize != nil {
		params.BatchSize = *req.BatchSize
	}
	if req.MaxLen != nil {
		params.MaxLen = *req.MaxLen
	}
	cfg := s.cfg
	if req.DTypeBytes != nil {
		cfg.ElementBytes = *req.DTypeBytes
	}
	decode, err := profile.DecodeShapes(req.Model, params)
	if err != nil {
		return profile.Decode{}, pim.Config{}, err
	}
	return decode, cfg, nil
}

func (s *Server) handleGetTrace(c *echo.Context) error {
	rec, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, c.Param("id"))
	}
	return c.JSON(http.StatusOK, traceObject(rec))
}

func (s *Server) handleTraceContent(c *echo.Context) error {
	rec, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, c.Param("id"))
	}
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", rec.ID+".trace"))
	res.Header().Set("X-Trace-Sha256", rec.Summary.Digest)
	res.WriteHeader(http.StatusOK)
	return trace.Write(res, rec.Commands)
}

func (s *Server) handleDeleteTrace(c *echo.Context) error {
	id := c.Param("id")
	if !s.store.Delete(id) {
		return writeNotFound(c, id)
	}
	return c.JSON(http.StatusOK, DeleteResponse{ID: id, Object: "trace.deleted", Deleted: true})
}

func traceObject(rec *traceRecord) TraceObject {
	return TraceObject{
		ID:        rec.ID,
		Object:    "trace",
		CreatedAt: rec.CreatedAt.Unix(),
		Summary:   rec.Summary,
	}
}

func writeError(c *echo.Context, status int, errType, msg, param, code string) error {
	return c.JSON(status, map[string]any{
		"error": ResponseError{
			Message: msg,
			Type:    errType,
			Code:    code,
			Param:   param,
		},
	})
}

func writeBadRequest(c *echo.Context, param, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, param, "")
}

func writeNotFound(c *echo.Context, id string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", fmt.Sprintf("trace %q not found", id), "id", "")
}

func writeGenerationError(c *echo.Context, err error) error {
	status, errType, code := classify(err)
	var param string
	var ire invalidRequestError
	if errors.As(err, &ire) {
		param = ire.param
	}
	return writeError(c, status, errType, err.Error(), param, code)
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

// Package server exposes the query pipeline and the evaluation
// harness over HTTP.
package server

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"seki/internal/eval"
	"seki/internal/openai"
	"seki/internal/query"
	"seki/internal/util"
	"seki/internal/validator"
	"seki/internal/warehouse"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// maxQuestionLen bounds the natural-language input in runes.
const maxQuestionLen = 500

// Server routes HTTP requests into the query pipeline.
type Server struct {
	svc    *query.Service
	corpus *eval.Corpus
	opts   eval.Options
}

// New builds a server around the pipeline. corpus may be nil when no
// fixture file is available; /api/eval then reports an error instead
// of a vacuous pass.
func New(svc *query.Service, corpus *eval.Corpus, opts eval.Options) *Server {
	return &Server{svc: svc, corpus: corpus, opts: opts}
}

// Router assembles the gin engine. CORS is open so local frontends
// and tooling can call the API directly.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())
	r.GET("/healthz", s.handleHealth)
	r.POST("/api/query", s.handleQuery)
	r.GET("/api/eval", s.handleEval)
	r.POST("/api/eval", s.handleEval)
	return r
}

type queryRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	question := strings.TrimSpace(req.Query)
	if n := utf8.RuneCountInString(question); n < 1 || n > maxQuestionLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query must be between 1 and 500 characters"})
		return
	}

	result, err := s.svc.Query(c.Request.Context(), question)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleEval(c *gin.Context) {
	if s.corpus == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "eval corpus unavailable"})
		return
	}
	report := eval.Run(c.Request.Context(), s.svc, s.corpus, s.opts)
	eval.Log(report)
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps pipeline failures to statuses. Upstream outages are
// 503s that name the collaborator; anything else is a generic 500 and
// the raw message stays in the logs.
func (s *Server) writeError(c *gin.Context, err error) {
	var genErr *openai.GenerationError
	var execErr *warehouse.ExecutionError
	var rejErr *validator.RejectionError
	switch {
	case errors.As(err, &genErr):
		util.Warnf("text generator unavailable: %v", genErr)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "text generator unavailable"})
	case errors.As(err, &execErr):
		util.Warnf("query executor unavailable: %v", execErr)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "query executor unavailable"})
	case errors.As(err, &rejErr):
		util.Errorf("constrained generation produced a rejected statement: %v", rejErr)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		util.Errorf("query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rezonia/nfse-ipm/internal/generator"
	"github.com/rezonia/nfse-ipm/internal/model"
)

// Invoicer is the set of webservice operations the gateway exposes.
// *webservice.Client implements it.
type Invoicer interface {
	Emit(ctx context.Context, req model.InvoiceRequest) (*model.InvoiceResponse, error)
	QueryByNumber(ctx context.Context, number string) (*model.InvoiceRecord, error)
	QueryByPeriod(ctx context.Context, start, end string) ([]model.InvoiceRecord, error)
	Cancel(ctx context.Context, number, reason string) (*model.InvoiceResponse, error)
}

// Config holds server configuration
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool
	// TestMode marks every emitted invoice as a test invoice
	TestMode bool
}

// Server represents the HTTP API server
type Server struct {
	config   *Config
	router   *gin.Engine
	invoicer Invoicer
	logger   *logrus.Logger
}

// NewServer creates a new API server
func NewServer(config *Config, invoicer Invoicer, logger *logrus.Logger) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if config.Debug {
		router.Use(gin.Logger())
	}

	s := &Server{
		config:   config,
		router:   router,
		invoicer: invoicer,
		logger:   logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/nfse", s.handleEmit)
		v1.POST("/nfse/xml", s.handleGenerateXML)
		v1.GET("/nfse", s.handleQueryByPeriod)
		v1.GET("/nfse/:number", s.handleQueryByNumber)
		v1.POST("/nfse/:number/cancel", s.handleCancel)
	}
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// bindInvoice decodes an invoice request and fills in the identifier
// when the caller left it blank
func (s *Server) bindInvoice(c *gin.Context) (model.InvoiceRequest, bool) {
	var req model.InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return req, false
	}

	if strings.TrimSpace(req.Identifier) == "" {
		req.Identifier = uuid.NewString()
	}
	if s.config.TestMode {
		req.TestMode = true
	}
	return req, true
}

func (s *Server) handleEmit(c *gin.Context) {
	req, ok := s.bindInvoice(c)
	if !ok {
		return
	}

	resp, err := s.invoicer.Emit(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, "emit", err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"identifier": req.Identifier,
		"number":     resp.Number,
	}).Info("invoice issued")
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGenerateXML(c *gin.Context) {
	req, ok := s.bindInvoice(c)
	if !ok {
		return
	}

	doc, err := generator.GenerateInvoiceXML(req)
	if err != nil {
		s.writeError(c, "generate", err)
		return
	}

	payload, err := generator.Encode(doc)
	if err != nil {
		s.writeError(c, "generate", err)
		return
	}
	c.Data(http.StatusOK, "text/xml; charset=ISO-8859-1", payload)
}

func (s *Server) handleQueryByNumber(c *gin.Context) {
	rec, err := s.invoicer.QueryByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		s.writeError(c, "query_number", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleQueryByPeriod(c *gin.Context) {
	start, end := c.Query("start"), c.Query("end")
	if start == "" || end == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "start and end query parameters are required (DD/MM/YYYY)"})
		return
	}

	list, err := s.invoicer.QueryByPeriod(c.Request.Context(), start, end)
	if err != nil {
		s.writeError(c, "query_period", err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Count: len(list), Invoices: list})
}

func (s *Server) handleCancel(c *gin.Context) {
	var body CancelRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}

	number := c.Param("number")
	resp, err := s.invoicer.Cancel(c.Request.Context(), number, body.Reason)
	if err != nil {
		s.writeError(c, "cancel", err)
		return
	}

	s.logger.WithField("number", number).Info("invoice cancelled")
	c.JSON(http.StatusOK, resp)
}

// writeError maps the client's error categories onto HTTP statuses
func (s *Server) writeError(c *gin.Context, op string, err error) {
	var (
		ve *model.ValidationError
		nf *model.NotFoundError
		be *model.BusinessError
		ae *model.AuthError
		te *model.TransportError
	)

	status := http.StatusBadGateway
	resp := ErrorResponse{Error: err.Error()}

	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		resp = ErrorResponse{Error: "invalid NFS-e data", Errors: ve.Violations}
	case errors.Is(err, generator.ErrQueryMode):
		status = http.StatusBadRequest
	case errors.As(err, &nf):
		status = http.StatusNotFound
	case errors.As(err, &be):
		status = http.StatusUnprocessableEntity
		resp.Code = be.Code
	case errors.As(err, &ae):
		resp.Code = "auth_failed"
	case errors.As(err, &te) && te.Kind == model.TransportTimeout:
		status = http.StatusGatewayTimeout
		resp.Code = string(te.Kind)
	case errors.As(err, &te):
		resp.Code = string(te.Kind)
	}

	entry := s.logger.WithFields(logrus.Fields{
		"operation": op,
		"status":    status,
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("webservice operation failed")
	} else {
		entry.Warn("webservice operation rejected")
	}

	c.JSON(status, resp)
}

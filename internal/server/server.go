package server

import (
	"context"
	goerrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"headwatch/internal/config"
	"headwatch/internal/history"
	"headwatch/internal/metrics"
	"headwatch/internal/pipeline"
	"headwatch/pkg/log"
)

type Server struct {
	conf       *config.Config
	analyzer   *pipeline.Analyzer
	catalog    *pipeline.Catalog
	history    *history.Store
	metrics    *metrics.Metrics
	httpServer *http.Server
	logger     *logrus.Entry
}

// NewServer wires the HTTP shell. history and m may be nil.
func NewServer(ctx context.Context, conf *config.Config, analyzer *pipeline.Analyzer,
	catalog *pipeline.Catalog, history *history.Store, m *metrics.Metrics) *Server {
	return &Server{
		conf:     conf,
		analyzer: analyzer,
		catalog:  catalog,
		history:  history,
		metrics:  m,
		logger:   log.GetLogger(ctx).WithField("component", "server"),
	}
}

func RequestId() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestId := c.GetHeader(log.HttpXRequestId)
		if requestId == "" {
			requestId = strings.ReplaceAll(uuid.New().String(), "-", "")
		}
		c.Header(log.HttpXRequestId, requestId)
		c.Request = c.Request.WithContext(log.WithRequestId(c.Request.Context(), requestId))
		c.Next()
	}
}

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		t := time.Now()
		c.Next()
		latency := time.Since(t)
		status := c.Writer.Status()

		log.GetLogger(c.Request.Context()).Info("ip: ", c.ClientIP(), " method: ", c.Request.Method, " path: ",
			c.Request.URL.Path, " status: ", status, " latency: ", latency)
	}
}

func (s *Server) Start() {
	gin.SetMode(gin.ReleaseMode)
	router := s.SetUpRouter()
	pprof.Register(router)
	s.httpServer = &http.Server{
		Addr:    s.conf.Server.Addr,
		Handler: router,
	}

	var err error
	if s.conf.Server.SSLCert != "" && s.conf.Server.SSLKey != "" {
		s.logger.Infof("start https server on %s", s.conf.Server.Addr)
		err = s.httpServer.ListenAndServeTLS(s.conf.Server.SSLCert, s.conf.Server.SSLKey)
	} else {
		s.logger.Infof("start http server on %s", s.conf.Server.Addr)
		err = s.httpServer.ListenAndServe()
	}
	if err != nil && !goerrors.Is(err, http.ErrServerClosed) {
		s.logger.Fatal(err)
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(c *gin.Context, code int, err error) {
	c.JSON(code, ErrorResponse{
		Error: err.Error(),
	})
}

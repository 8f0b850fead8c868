package server

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) SetUpRouter() *gin.Engine {
	router := gin.New()
	router.Use(RequestId())
	router.Use(Logger())
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "ok",
		})
	})
	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "not found"})
	})

	apiV1 := router.Group("/api/v1")
	s.SetUpApiV1Router(apiV1)

	return router
}

func (s *Server) SetUpApiV1Router(apiV1 *gin.RouterGroup) {
	if s.conf.Server.JwtSecret != "" {
		apiV1.Use(NeedAuth(s.conf.Server.JwtSecret))
	}

	apiV1.GET("/images", s.handleListImages)
	apiV1.POST("/analyze", s.handleAnalyze)
	apiV1.GET("/reports", s.handleListReports)
	apiV1.GET("/reports/:report_id/image", s.handleGetReportImage)
}

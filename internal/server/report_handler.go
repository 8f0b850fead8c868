package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"headwatch/internal/history"
	"headwatch/internal/pipeline"
)

const defaultReportLimit = 20

type ListReportsResponse struct {
	Items []pipeline.Summary `json:"items"`
}

var errHistoryDisabled = errors.New("report history is disabled")

func (s *Server) handleListReports(c *gin.Context) {
	if s.history == nil {
		s.writeError(c, http.StatusNotFound, errHistoryDisabled)
		return
	}

	limit := defaultReportLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(c, http.StatusBadRequest, errors.New("invalid limit"))
			return
		}
		limit = n
	}

	items, err := s.history.List(limit)
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, ListReportsResponse{Items: items})
}

func (s *Server) handleGetReportImage(c *gin.Context) {
	if s.history == nil {
		s.writeError(c, http.StatusNotFound, errHistoryDisabled)
		return
	}

	data, err := s.history.Image(c.Param("report_id"))
	if errors.Is(err, history.ErrNotFound) {
		s.writeError(c, http.StatusNotFound, errors.New("report image not found"))
		return
	} else if err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}

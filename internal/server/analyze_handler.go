package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"headwatch/internal/detector"
	"headwatch/internal/pipeline"
)

type AnalyzeRequest struct {
	ImageID   int  `json:"imageId" form:"imageId" binding:"omitempty,gte=1"`
	Threshold *int `json:"threshold" form:"threshold" binding:"omitempty,gte=0"`
}

type AnalyzeResponse struct {
	pipeline.Summary
	ImageURL string `json:"imageUrl,omitempty"`
}

type ListImagesResponse struct {
	Items []pipeline.CatalogEntry `json:"items"`
}

// handleListImages lists the catalog images that can be analyzed by id.
func (s *Server) handleListImages(c *gin.Context) {
	c.JSON(http.StatusOK, ListImagesResponse{Items: s.catalog.Entries()})
}

// handleAnalyze analyzes a catalog image (JSON body with imageId) or an
// uploaded file (multipart field "image").
func (s *Server) handleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	var src pipeline.Source

	if c.ContentType() == "multipart/form-data" {
		if s.conf.Server.MaxUploadSize > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.conf.Server.MaxUploadSize)
		}
		if err := c.ShouldBind(&req); err != nil {
			s.writeError(c, bindErrorStatus(err), err)
			return
		}
		if fh, err := c.FormFile("image"); err == nil {
			f, err := fh.Open()
			if err != nil {
				s.writeError(c, http.StatusBadRequest, err)
				return
			}
			defer f.Close()
			src = pipeline.FromReader(fh.Filename, f)
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, http.StatusBadRequest, err)
		return
	}

	if src == nil {
		if req.ImageID == 0 {
			s.writeError(c, http.StatusBadRequest, errors.New("imageId or image file is required"))
			return
		}
		path, err := s.catalog.Resolve(req.ImageID)
		if err != nil {
			s.writeError(c, http.StatusNotFound, err)
			return
		}
		src = pipeline.FromPath(path)
	}

	threshold := s.conf.Counter.CountThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	report, err := s.analyzer.Analyze(c.Request.Context(), src, threshold)
	if err != nil {
		s.writeError(c, analyzeErrorStatus(err), err)
		return
	}

	resp := AnalyzeResponse{Summary: report.Summary()}
	if s.history != nil {
		if err := s.history.Append(report); err != nil {
			s.logger.WithError(err).Warnf("save report %s to history failed", report.ID)
		} else {
			resp.ImageURL = fmt.Sprintf("/api/v1/reports/%s/image", report.ID)
		}
	}
	c.JSON(http.StatusOK, resp)
}

func bindErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func analyzeErrorStatus(err error) int {
	switch {
	case errors.Is(err, detector.ErrImageLoad):
		return http.StatusUnprocessableEntity
	case errors.Is(err, detector.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

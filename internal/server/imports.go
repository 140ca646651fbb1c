package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	ingestdomain "github.com/smallbiznis/arrears/internal/ingest/domain"
	portfoliodomain "github.com/smallbiznis/arrears/internal/portfolio/domain"
	"github.com/smallbiznis/arrears/pkg/db/pagination"
)

func (s *Server) RunImport(c *gin.Context) {
	var req ingestdomain.RunRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
	}

	summary, err := s.ingestSvc.Run(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

type listImportRunsResponse struct {
	pagination.PageInfo
	Runs []*portfoliodomain.ImportRun `json:"runs"`
}

func (s *Server) ListImportRuns(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	page = page.Normalize()

	runs, total, err := s.ingestSvc.History(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, listImportRunsResponse{
		PageInfo: pagination.BuildPageInfo(page, total),
		Runs:     runs,
	})
}

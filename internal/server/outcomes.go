package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	resolverdomain "github.com/smallbiznis/arrears/internal/resolver/domain"
	"github.com/smallbiznis/arrears/pkg/db/pagination"
)

type listOutcomesResponse struct {
	pagination.PageInfo
	Outcomes        []resolverdomain.BillOutcome   `json:"outcomes"`
	IntegrityReport resolverdomain.IntegrityReport `json:"integrity_report"`
	ResolvedAt      time.Time                      `json:"resolved_at"`
}

func (s *Server) ListOutcomes(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	page = page.Normalize()

	resolution, err := s.resolverSvc.Resolve(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	total := int64(len(resolution.Outcomes))
	start := page.Offset()
	if start > len(resolution.Outcomes) {
		start = len(resolution.Outcomes)
	}
	end := start + page.PageSize
	if end > len(resolution.Outcomes) {
		end = len(resolution.Outcomes)
	}

	c.JSON(http.StatusOK, listOutcomesResponse{
		PageInfo:        pagination.BuildPageInfo(page, total),
		Outcomes:        resolution.Outcomes[start:end],
		IntegrityReport: resolution.Report,
		ResolvedAt:      resolution.ResolvedAt,
	})
}

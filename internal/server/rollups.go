package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	rollupdomain "github.com/smallbiznis/arrears/internal/rollup/domain"
)

type rollupResponse struct {
	Dimension rollupdomain.Dimension       `json:"dimension"`
	Rollups   []rollupdomain.SegmentRollup `json:"rollups"`
}

func (s *Server) GetRollup(c *gin.Context) {
	dimension, err := rollupdomain.ParseDimension(c.Param("dimension"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rollups, err := s.rollupSvc.Rollup(c.Request.Context(), dimension)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, rollupResponse{Dimension: dimension, Rollups: rollups})
}

func (s *Server) GetPortfolioSummary(c *gin.Context) {
	summary, err := s.rollupSvc.Summary(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (s *Server) GetActionVolumes(c *gin.Context) {
	volumes, err := s.rollupSvc.ActionVolumes(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"volumes": volumes})
}

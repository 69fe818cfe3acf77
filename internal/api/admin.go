package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/pkg/types"
)

// listSessionsHandler returns summaries of all live sessions.
// Connection strings are never included in the response.
func (s *Server) listSessionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		summaries := s.sessionStore.List(c.Request.Context())

		resp := make([]*types.SessionSummary, len(summaries))
		for i, sum := range summaries {
			resp[i] = &types.SessionSummary{
				SessionID:      sum.SessionID,
				CreatedAt:      sum.CreatedAt.UTC().Format(time.RFC3339),
				LastAccessedAt: sum.LastAccessedAt.UTC().Format(time.RFC3339),
				ExpiresInSec:   int64(sum.ExpiresIn.Seconds()),
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

// listPoolHandler returns summaries of all pooled connections. Only a
// fingerprint prefix identifies each entry.
func (s *Server) listPoolHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		active := s.pool.ListActive()

		resp := make([]*types.PoolSummary, len(active))
		for i, e := range active {
			resp[i] = &types.PoolSummary{
				FingerprintPrefix: e.FingerprintPrefix,
				CreatedAt:         e.CreatedAt.UTC().Format(time.RFC3339),
				LastUsedAt:        e.LastUsedAt.UTC().Format(time.RFC3339),
				IdleSec:           int64(e.Idle.Seconds()),
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/internal/pool"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/internal/session"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/internal/service/explorer"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/pkg/logger"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/pkg/types"
)

// connectHandler exchanges a MongoDB connection string for a session token.
// The deployment is dialed before the session is created so that a bad
// connection string fails here rather than on the first query.
func (s *Server) connectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input types.ConnectRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if _, err := s.pool.Acquire(c.Request.Context(), input.URI); err != nil {
			s.log.Warn("connect attempt failed", logger.Field{Key: "error", Value: err.Error()})
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		sessionID, err := s.sessionStore.Create(c.Request.Context(), input.URI)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, &types.ConnectResponse{SessionID: sessionID})
	}
}

// disconnectHandler ends a session and closes its pooled connection.
func (s *Server) disconnectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(SessionIDHeader)
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + SessionIDHeader + " header"})
			return
		}

		// Resolve first: the connection string is needed to release the
		// pooled connection, and it is gone once the record is deleted.
		uri, err := s.sessionStore.Resolve(c.Request.Context(), sessionID)

		if !s.sessionStore.Delete(c.Request.Context(), sessionID) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		if err == nil {
			s.pool.Release(c.Request.Context(), uri)
		}

		c.Status(http.StatusNoContent)
	}
}

// sessionID extracts the session token or writes a 400 response.
func sessionID(c *gin.Context) (string, bool) {
	id := c.GetHeader(SessionIDHeader)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + SessionIDHeader + " header"})
		return "", false
	}
	return id, true
}

// writeServiceError maps service errors onto HTTP status codes:
// unknown/expired sessions ask the client to reconnect, connection failures
// surface as bad gateway, missing documents as not found.
func writeServiceError(c *gin.Context, err error) {
	var connErr *pool.ConnectionError
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session not found or expired, reconnect required"})
	case errors.As(err, &connErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, explorer.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

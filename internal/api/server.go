// Package api implements the REST surface of the backend.
package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/internal/pool"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/internal/session"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/internal/service/explorer"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/pkg/logger"
)

// V0PathPrefix is the URL prefix of the current API version.
const V0PathPrefix = "/api/v0"

// SessionIDHeader is the request header carrying the session token.
const SessionIDHeader = "X-Session-Id"

// ServerOptions holds the dependencies of the API server.
type ServerOptions struct {
	Pool            *pool.Pool
	SessionStore    *session.Manager
	ExplorerService *explorer.Service
	Logger          logger.Logger
}

// Server is the REST API server.
type Server struct {
	pool            *pool.Pool
	sessionStore    *session.Manager
	explorerService *explorer.Service
	log             logger.Logger

	router *gin.Engine
}

// NewServer creates the API server and sets up its routes.
func NewServer(opts *ServerOptions) (*Server, error) {
	if opts == nil {
		return nil, fmt.Errorf("server options must not be nil")
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	s := &Server{
		pool:            opts.Pool,
		sessionStore:    opts.SessionStore,
		explorerService: opts.ExplorerService,
		log:             log,
	}

	router, err := s.setupRouter()
	if err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}
	s.router = router

	return s, nil
}

// Router returns the underlying gin engine, for use as an http.Handler.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupRouter() (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery(), requestIDMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v0 := r.Group(V0PathPrefix)

	v0.POST("/connect", s.connectHandler())
	v0.POST("/disconnect", s.disconnectHandler())

	v0.GET("/databases", s.listDatabasesHandler())
	v0.GET("/databases/:db/collections", s.listCollectionsHandler())
	v0.GET("/databases/:db/collections/:coll/stats", s.collectionStatsHandler())
	v0.POST("/databases/:db/collections/:coll/query", s.queryHandler())
	v0.POST("/databases/:db/collections/:coll/aggregate", s.aggregateHandler())
	v0.GET("/databases/:db/collections/:coll/schema", s.schemaHandler())
	v0.POST("/databases/:db/collections/:coll/export", s.exportHandler())

	v0.GET("/databases/:db/collections/:coll/documents/:id", s.getDocumentHandler())
	v0.POST("/databases/:db/collections/:coll/documents", s.insertDocumentHandler())
	v0.PUT("/databases/:db/collections/:coll/documents/:id", s.replaceDocumentHandler())
	v0.DELETE("/databases/:db/collections/:coll/documents/:id", s.deleteDocumentHandler())

	admin := v0.Group("/admin")
	admin.GET("/sessions", s.listSessionsHandler())
	admin.GET("/pool", s.listPoolHandler())

	return r, nil
}

// requestIDMiddleware tags every request with an ID for log correlation.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-Id", id)
		c.Next()
	}
}

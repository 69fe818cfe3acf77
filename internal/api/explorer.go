package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/internal/service/explorer"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/pkg/types"
)

func (s *Server) listDatabasesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionID(c)
		if !ok {
			return
		}

		dbs, err := s.explorerService.ListDatabases(c.Request.Context(), id)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, dbs)
	}
}

func (s *Server) listCollectionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionID(c)
		if !ok {
			return
		}

		colls, err := s.explorerService.ListCollections(c.Request.Context(), id, c.Param("db"))
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, colls)
	}
}

func (s *Server) collectionStatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionID(c)
		if !ok {
			return
		}

		stats, err := s.explorerService.CollectionStats(c.Request.Context(), id, c.Param("db"), c.Param("coll"))
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func (s *Server) queryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionID(c)
		if !ok {
			return
		}

		var req types.QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		resp, err := s.explorerService.Query(c.Request.Context(), id, c.Param("db"), c.Param("coll"), &req)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (s *Server) aggregateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionID(c)
		if !ok {
			return
		}

		var req types.AggregateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		docs, err := s.explorerService.Aggregate(c.Request.Context(), id, c.Param("db"), c.Param("coll"), &req)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
	}
}

func (s *Server) schemaHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionID(c)
		if !ok {
			return
		}

		sample := 0
		if v := c.Query("sample"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "sample must be a positive integer"})
				return
			}
			sample = n
		}

		schema, err := s.explorerService.SampleSchema(c.Request.Context(), id, c.Param("db"), c.Param("coll"), sample)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, schema)
	}
}

func (s *Server) exportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionID(c)
		if !ok {
			return
		}

		var req types.ExportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		format := strings.ToLower(req.Format)
		if format == "" {
			format = explorer.FormatJSON
		}
		if format != explorer.FormatCSV && format != explorer.FormatJSON {
			c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or json"})
			return
		}

		// Buffer the export so error responses keep their own headers.
		var buf bytes.Buffer
		if err := s.explorerService.Export(c.Request.Context(), id, c.Param("db"), c.Param("coll"), &req, &buf); err != nil {
			writeServiceError(c, err)
			return
		}

		contentType := "application/json"
		if format == explorer.FormatCSV {
			contentType = "text/csv"
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", c.Param("coll"), format))
		c.Data(http.StatusOK, contentType, buf.Bytes())
	}
}

func (s *Server) getDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionID(c)
		if !ok {
			return
		}

		doc, err := s.explorerService.Get(c.Request.Context(), id, c.Param("db"), c.Param("coll"), c.Param("id"))
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

func (s *Server) insertDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionID(c)
		if !ok {
			return
		}

		var doc map[string]any
		if err := c.ShouldBindJSON(&doc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		insertedID, err := s.explorerService.Insert(c.Request.Context(), id, c.Param("db"), c.Param("coll"), doc)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"inserted_id": insertedID})
	}
}

func (s *Server) replaceDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionID(c)
		if !ok {
			return
		}

		var doc map[string]any
		if err := c.ShouldBindJSON(&doc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		err := s.explorerService.Replace(c.Request.Context(), id, c.Param("db"), c.Param("coll"), c.Param("id"), doc)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) deleteDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionID(c)
		if !ok {
			return
		}

		err := s.explorerService.Delete(c.Request.Context(), id, c.Param("db"), c.Param("coll"), c.Param("id"))
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

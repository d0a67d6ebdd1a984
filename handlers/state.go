package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apiroute/routing-engine/internal/state"
)

// RegisterStateRoutes mounts the REST facade over the document store
// client. Collections are created ad hoc; no schema is imposed here.
func RegisterStateRoutes(r *gin.Engine, client *state.Client) {
	grp := r.Group("/api/v1/state")

	grp.POST("/:collection", func(c *gin.Context) {
		doc, ok := bindDocument(c)
		if !ok {
			return
		}
		id, err := client.CreateDocument(c.Request.Context(), c.Param("collection"), doc, c.Query("id"))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": id})
	})

	grp.GET("/:collection/:id", func(c *gin.Context) {
		doc, found, err := client.GetDocument(c.Request.Context(), c.Param("collection"), c.Param("id"))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "data": doc.Native()})
	})

	grp.PUT("/:collection/:id", func(c *gin.Context) {
		doc, ok := bindDocument(c)
		if !ok {
			return
		}
		id, err := client.CreateDocument(c.Request.Context(), c.Param("collection"), doc, c.Param("id"))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	grp.PATCH("/:collection/:id", func(c *gin.Context) {
		fields, ok := bindDocument(c)
		if !ok {
			return
		}
		found, err := client.UpdateDocument(c.Request.Context(), c.Param("collection"), c.Param("id"), fields)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})

	grp.DELETE("/:collection/:id", func(c *gin.Context) {
		if err := client.DeleteDocument(c.Request.Context(), c.Param("collection"), c.Param("id")); err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	})

	grp.POST("/:collection/query", func(c *gin.Context) {
		var req struct {
			Filters []struct {
				Field string      `json:"field"`
				Op    string      `json:"op"`
				Value interface{} `json:"value"`
			} `json:"filters"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filters := make([]state.Filter, 0, len(req.Filters))
		for _, f := range req.Filters {
			v, err := state.FromNative(f.Value)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			filters = append(filters, state.Filter{Field: f.Field, Op: f.Op, Value: v})
		}

		results, err := client.QueryDocuments(c.Request.Context(), c.Param("collection"), filters...)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		out := make([]gin.H, 0, len(results))
		for _, r := range results {
			out = append(out, gin.H{"id": r.ID, "data": r.Doc.Native()})
		}
		c.JSON(http.StatusOK, out)
	})
}

func bindDocument(c *gin.Context) (state.Document, bool) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	doc, err := state.DocumentFromNative(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return doc, true
}

func statusFor(err error) int {
	if errors.Is(err, state.ErrCredentialsNotFound) || errors.Is(err, state.ErrInitialization) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

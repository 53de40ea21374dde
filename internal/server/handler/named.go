package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// namedRoutes bundles the registry accessors of one name-keyed entity kind so
// the formulaic list/get/add/delete routes are generated once. list may be
// nil when the entity kind has no listing endpoint.
type namedRoutes[E any] struct {
	list func() []string
	get  func(name string) (E, bool)
	add  func(ctx context.Context, e E) error
	del  func(ctx context.Context, name string) error
	name func(e E) string
}

func registerNamed[E any](rg *gin.RouterGroup, path string, routes namedRoutes[E], entity string, h *AdminHandler) {
	g := rg.Group(path)

	if routes.list != nil {
		g.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"names": routes.list()})
		})
	}

	g.GET("/:name", func(c *gin.Context) {
		e, ok := routes.get(c.Param("name"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": entity + " not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{entity: e})
	})

	g.POST("", func(c *gin.Context) {
		var e E
		if err := c.ShouldBindJSON(&e); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		err := routes.add(c.Request.Context(), e)
		RecordConfigMutation(entity, err)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "added " + entity + " " + routes.name(e)})
	})

	g.DELETE("/:name", func(c *gin.Context) {
		name := c.Param("name")
		err := routes.del(c.Request.Context(), name)
		RecordConfigMutation(entity, err)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "removed " + entity + " " + name})
	})
}

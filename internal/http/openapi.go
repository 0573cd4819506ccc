package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-contractor/internal/imports"
	"github.com/goliatone/go-contractor/internal/openapi"
)

// APIVersion is reported in the OpenAPI document.
const APIVersion = "1.0.0"

func (api *API) registerOpenAPIRoute(group *gin.RouterGroup) {
	doc := api.OpenAPI()
	group.GET("/openapi.json", func(c *gin.Context) {
		c.JSON(http.StatusOK, doc)
	})
}

// OpenAPI describes every route the API would register along with the
// import schemas. Routes are collected from a scratch engine so the document
// matches whichever services are configured.
func (api *API) OpenAPI() *openapi.Document {
	scratch := gin.New()
	base := joinPath(api.basePath, "")
	api.registerRoutes(scratch.Group(base))

	doc := openapi.NewDocument("Contractor API", APIVersion)
	for _, route := range scratch.Routes() {
		doc.AddRoute(route.Method, route.Path, base)
	}
	doc.AddRoute(http.MethodGet, joinPath(base, "openapi.json"), base)

	if api.imports != nil {
		for _, kind := range []imports.Kind{imports.KindClients, imports.KindProducts} {
			raw, err := api.imports.Schema(kind)
			if err != nil {
				api.logger.Warn("http.openapi.schema_failed", "kind", kind, "error", err)
				continue
			}
			if err := doc.AddRawSchema(string(kind)+"_import", raw); err != nil {
				api.logger.Warn("http.openapi.schema_invalid", "kind", kind, "error", err)
			}
		}
	}
	return doc
}

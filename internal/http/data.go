package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-contractor/internal/exports"
	"github.com/goliatone/go-contractor/internal/imports"
)

const maxImportBody = 8 << 20

func (api *API) registerDataRoutes(group *gin.RouterGroup) {
	if api.exports != nil {
		group.POST("/exports/:kind", api.handleExportGenerate)
		group.GET("/exports/:kind", api.handleExportDownload)
	}
	if api.imports != nil {
		group.POST("/imports/:kind", api.handleImport)
		group.GET("/imports/:kind/schema", api.handleImportSchema)
	}
}

// handleExportGenerate stores the export in the object store and returns its
// descriptor.
func (api *API) handleExportGenerate(c *gin.Context) {
	kind, err := exports.ParseKind(c.Param("kind"))
	if err != nil {
		writeError(c, err)
		return
	}
	result, err := api.exports.Generate(c.Request.Context(), kind)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// handleExportDownload streams the CSV without storing it. Errors found
// before the first row are reported as JSON.
func (api *API) handleExportDownload(c *gin.Context) {
	kind, err := exports.ParseKind(c.Param("kind"))
	if err != nil {
		writeError(c, err)
		return
	}
	var buf bytes.Buffer
	if _, err := api.exports.Write(c.Request.Context(), kind, &buf); err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+string(kind)+`.csv"`)
	c.Data(http.StatusOK, exports.ContentTypeCSV, buf.Bytes())
}

func (api *API) handleImport(c *gin.Context) {
	kind, err := imports.ParseKind(c.Param("kind"))
	if err != nil {
		writeError(c, err)
		return
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBody+1))
	if err != nil {
		writeInvalid(c, "unable to read body")
		return
	}
	if len(data) > maxImportBody {
		writeInvalid(c, "import body too large")
		return
	}
	result, err := api.imports.Import(c.Request.Context(), kind, data, imports.Options{
		DryRun: queryBool(c, "dry_run", false),
	})
	if err != nil {
		status, payload := mapError(err)
		if result != nil && (errors.Is(err, imports.ErrRowsInvalid) || errors.Is(err, imports.ErrImportAborted)) {
			payload.Issues = result.Issues
			c.AbortWithStatusJSON(status, gin.H{
				"error":   payload.Error,
				"message": payload.Message,
				"issues":  payload.Issues,
				"created": result.Created,
			})
			return
		}
		c.AbortWithStatusJSON(status, payload)
		return
	}
	status := http.StatusCreated
	if result.DryRun {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

func (api *API) handleImportSchema(c *gin.Context) {
	kind, err := imports.ParseKind(c.Param("kind"))
	if err != nil {
		writeError(c, err)
		return
	}
	raw, err := api.imports.Schema(kind)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/schema+json", raw)
}

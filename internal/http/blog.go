package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-contractor/internal/blog"
)

type postSchedulePayload struct {
	PublishAt *time.Time `json:"publish_at"`
}

func (p postSchedulePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.PublishAt, validation.Required),
	)
}

type markdownPreviewPayload struct {
	Markdown string `json:"markdown"`
}

func (api *API) registerBlogRoutes(group *gin.RouterGroup) {
	group.POST("/markdown/preview", api.handleMarkdownPreview)
	if api.posts == nil {
		return
	}
	posts := group.Group("/posts")
	posts.GET("", api.handlePostList)
	posts.POST("", api.handlePostCreate)
	posts.GET("/:id", api.handlePostGet)
	posts.PATCH("/:id", api.handlePostUpdate)
	posts.DELETE("/:id", api.handlePostDelete)
	posts.POST("/:id/publish", api.handlePostPublish)
	posts.POST("/:id/unpublish", api.handlePostUnpublish)
	posts.POST("/:id/schedule", api.handlePostSchedule)

	public := group.Group("/public/posts")
	public.GET("", api.handlePublicPostList)
	public.GET("/:slug", api.handlePublicPostGet)
}

func (api *API) handlePostList(c *gin.Context) {
	p, ok := pagination(c)
	if !ok {
		return
	}
	list, total, err := api.posts.List(c.Request.Context(), blog.ListOptions{
		Status: blog.Status(c.Query("status")),
		Tag:    strings.TrimSpace(c.Query("tag")),
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeList(c, list, total)
}

func (api *API) handlePostCreate(c *gin.Context) {
	var input blog.CreatePostInput
	if !bindJSON(c, &input) {
		return
	}
	post, err := api.posts.Create(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (api *API) handlePostGet(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	post, err := api.posts.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (api *API) handlePostUpdate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var input blog.UpdatePostInput
	if !bindJSON(c, &input) {
		return
	}
	input.ID = id
	post, err := api.posts.Update(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (api *API) handlePostDelete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := api.posts.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (api *API) handlePostPublish(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	post, err := api.posts.Publish(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (api *API) handlePostUnpublish(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	post, err := api.posts.Unpublish(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (api *API) handlePostSchedule(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var payload postSchedulePayload
	if !bindJSON(c, &payload) {
		return
	}
	if err := payload.Validate(); err != nil {
		writeError(c, err)
		return
	}
	post, err := api.posts.Schedule(c.Request.Context(), id, *payload.PublishAt)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (api *API) handlePublicPostList(c *gin.Context) {
	p, ok := pagination(c)
	if !ok {
		return
	}
	list, total, err := api.posts.ListPublished(c.Request.Context(), strings.TrimSpace(c.Query("tag")), p.Limit, p.Offset)
	if err != nil {
		writeError(c, err)
		return
	}
	writeList(c, list, total)
}

func (api *API) handlePublicPostGet(c *gin.Context) {
	post, err := api.posts.GetPublished(c.Request.Context(), c.Param("slug"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (api *API) handleMarkdownPreview(c *gin.Context) {
	var payload markdownPreviewPayload
	if !bindJSON(c, &payload) {
		return
	}
	html, err := api.renderer.Render([]byte(payload.Markdown))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"html": string(html)})
}

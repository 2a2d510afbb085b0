// Package httpapi exposes the task services over HTTP.
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"task-tracker/internal/service"
)

// AuthHeader carries the caller's external-auth identifier.
const AuthHeader = "X-Auth-ID"

const actorKey = "actor"

// Handler serves the task routes.
type Handler struct {
	tasks  *service.TaskService
	sweep  *service.SweepService
	log    logrus.FieldLogger
	gather prometheus.Gatherer
}

func NewHandler(tasks *service.TaskService, sweep *service.SweepService, gather prometheus.Gatherer, log logrus.FieldLogger) *Handler {
	return &Handler{tasks: tasks, sweep: sweep, gather: gather, log: log}
}

// Router builds the gin engine.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLog())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if h.gather != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gather, promhttp.HandlerOpts{})))
	}
	r.POST("/internal/sweep", h.resolveActor, h.runSweep)

	tasks := r.Group("/tasks", h.resolveActor)
	tasks.POST("", h.createTask)
	tasks.GET("", h.listTasks)
	tasks.GET("/:id", h.getTask)
	tasks.PATCH("/:id/status", h.updateStatus)
	tasks.PUT("/:id/assignees", h.setAssignees)
	tasks.DELETE("/:id", h.deleteTask)
	return r
}

func (h *Handler) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		h.log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
		}).Debug("request")
	}
}

func (h *Handler) resolveActor(c *gin.Context) {
	actor, err := h.tasks.ResolveActor(c.Request.Context(), c.GetHeader(AuthHeader))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown caller"})
			return
		}
		h.fail(c, err)
		return
	}
	c.Set(actorKey, actor)
	c.Next()
}

func actorFrom(c *gin.Context) service.Actor {
	return c.MustGet(actorKey).(service.Actor)
}

func taskID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return 0, false
	}
	return uint(id), true
}

func (h *Handler) createTask(c *gin.Context) {
	var input service.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := h.tasks.CreateTask(c.Request.Context(), actorFrom(c), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *Handler) listTasks(c *gin.Context) {
	views, err := h.tasks.ListVisible(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": views})
}

func (h *Handler) getTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	view, err := h.tasks.GetTask(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) updateStatus(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	var input service.StatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	change, err := h.tasks.UpdateStatus(c.Request.Context(), actorFrom(c), id, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, change)
}

func (h *Handler) setAssignees(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	var input service.AssignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := h.tasks.SetAssignees(c.Request.Context(), actorFrom(c), id, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) deleteTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	if err := h.tasks.DeleteTask(c.Request.Context(), actorFrom(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) runSweep(c *gin.Context) {
	if !actorFrom(c).IsAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return
	}
	res, err := h.sweep.Run(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// fail maps service errors to status codes.
func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		h.log.WithField("path", c.FullPath()).WithError(err).Error("request failed")
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

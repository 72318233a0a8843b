package handler

import (
	"strconv"

	"github.com/catalogsync/backend/internal/infrastructure/scheduler"
	"github.com/gin-gonic/gin"
)

// JobRunner lists, triggers and reports background jobs
type JobRunner interface {
	Jobs() []string
	Trigger(name string) (scheduler.JobRun, error)
	History(job string, limit int) []scheduler.JobRun
}

// SchedulerHandler exposes the background job scheduler
type SchedulerHandler struct {
	BaseHandler
	jobs JobRunner
}

// NewSchedulerHandler creates a SchedulerHandler
func NewSchedulerHandler(jobs JobRunner) *SchedulerHandler {
	return &SchedulerHandler{jobs: jobs}
}

// Jobs godoc
// @ID           listSchedulerJobs
// @Summary      List jobs
// @Tags         scheduler
// @Produce      json
// @Success      200 {object} dto.Response{data=[]string}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /scheduler/jobs [get]
func (h *SchedulerHandler) Jobs(c *gin.Context) {
	names := h.jobs.Jobs()
	h.SuccessList(c, names, len(names), 0)
}

// Runs godoc
// @ID           listSchedulerRuns
// @Summary      List job runs
// @Description  Recent runs, newest first
// @Tags         scheduler
// @Produce      json
// @Param        job            query  string  false "Job name"
// @Param        limit          query  integer false "Maximum rows"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /scheduler/runs [get]
func (h *SchedulerHandler) Runs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit < 1 {
		h.BadRequest(c, "limit must be a positive integer")
		return
	}
	runs := h.jobs.History(c.Query("job"), limit)
	h.SuccessList(c, runs, len(runs), limit)
}

// Trigger godoc
// @ID           triggerSchedulerJob
// @Summary      Trigger job
// @Description  Starts a job run outside its schedule
// @Tags         scheduler
// @Produce      json
// @Param        name           path   string  true  "Job name"
// @Success      202 {object} dto.Response
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /scheduler/jobs/{name}/trigger [post]
func (h *SchedulerHandler) Trigger(c *gin.Context) {
	run, err := h.jobs.Trigger(c.Param("name"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, run)
}

// RegisterRoutes mounts the scheduler endpoints
func (h *SchedulerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/scheduler")
	g.GET("/jobs", h.Jobs)
	g.GET("/runs", h.Runs)
	g.POST("/jobs/:name/trigger", h.Trigger)
}

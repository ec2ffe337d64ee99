package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	coreconductor "github.com/kiosk404/echoryn/internal/hivemind/service/conductor/conductor"
)

// ConductorRuntime is the Conductor Runtime surface the handler calls into.
// It is satisfied by *conductor.Module.
type ConductorRuntime interface {
	ExecuteTask(ctx context.Context, req coreconductor.ExecuteTaskRequest) (coreconductor.TaskState, error)
	GetTaskState(runID string) (coreconductor.TaskState, error)
}

// ConductorHandler exposes the Conductor Runtime's task-execution API.
// Unlike the other v1 handlers it replies with plain gin JSON rather than
// the errorx/core.WriteResponse envelope, since those packages are absent
// from this copy of the codebase; failures are reported with a minimal
// {"error": "..."} body instead.
type ConductorHandler struct {
	runtime ConductorRuntime
}

// NewConductorHandler creates a new ConductorHandler.
func NewConductorHandler(runtime ConductorRuntime) *ConductorHandler {
	return &ConductorHandler{runtime: runtime}
}

// ExecuteTaskRequestBody is the JSON body for POST /v1/conductor/tasks.
type ExecuteTaskRequestBody struct {
	DesktopID  string `json:"desktop_id" binding:"required"`
	Objective  string `json:"objective" binding:"required"`
	OutputMode string `json:"output_mode,omitempty"`
}

// ExecuteTask handles POST /v1/conductor/tasks.
func (h *ConductorHandler) ExecuteTask(c *gin.Context) {
	var body ExecuteTaskRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.runtime.ExecuteTask(c.Request.Context(), coreconductor.ExecuteTaskRequest{
		DesktopID:  body.DesktopID,
		Objective:  body.Objective,
		OutputMode: coreconductor.OutputMode(body.OutputMode),
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, state)
}

// GetTaskState handles GET /v1/conductor/tasks/:id.
func (h *ConductorHandler) GetTaskState(c *gin.Context) {
	runID := c.Param("id")
	state, err := h.runtime.GetTaskState(runID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

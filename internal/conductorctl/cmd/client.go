package cmd

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	coreconductor "github.com/kiosk404/echoryn/internal/hivemind/service/conductor/conductor"
	"github.com/kiosk404/echoryn/pkg/utils/json"
)

// apiError mirrors the {"error": "..."} body ConductorHandler writes on a
// non-2xx response.
type apiError struct {
	Error string `json:"error"`
}

// SubmitTask POSTs an objective to the Conductor Runtime and returns the
// initial task state.
func SubmitTask(addr string, req coreconductor.ExecuteTaskRequest) (coreconductor.TaskState, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return coreconductor.TaskState{}, fmt.Errorf("encode request: %w", err)
	}

	resp, err := http.Post(fmt.Sprintf("http://%s/v1/conductor/tasks", addr), "application/json", bytes.NewReader(body))
	if err != nil {
		return coreconductor.TaskState{}, fmt.Errorf("submit task: %w", err)
	}
	defer resp.Body.Close()

	return decodeTaskState(resp)
}

// GetTaskState GETs a run's current state.
func GetTaskState(addr, runID string) (coreconductor.TaskState, error) {
	resp, err := http.Get(fmt.Sprintf("http://%s/v1/conductor/tasks/%s", addr, runID))
	if err != nil {
		return coreconductor.TaskState{}, fmt.Errorf("get task state: %w", err)
	}
	defer resp.Body.Close()

	return decodeTaskState(resp)
}

func decodeTaskState(resp *http.Response) (coreconductor.TaskState, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return coreconductor.TaskState{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr apiError
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
			return coreconductor.TaskState{}, fmt.Errorf("%s", apiErr.Error)
		}
		return coreconductor.TaskState{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(data))
	}

	var state coreconductor.TaskState
	if err := json.Unmarshal(data, &state); err != nil {
		return coreconductor.TaskState{}, fmt.Errorf("decode response: %w", err)
	}
	return state, nil
}

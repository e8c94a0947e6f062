package kieai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	apperrors "github.com/uniedit/videogen/internal/shared/errors"
)

// CreateTask submits {model, input, callBackUrl?} to the generic task endpoint.
func (c *Client) CreateTask(ctx context.Context, apiKey, model string, input any, callbackURL string) (string, error) {
	if err := requireKey(apiKey); err != nil {
		return "", err
	}

	raw, err := c.do(ctx, "create_task", http.MethodPost, c.baseURL+"/jobs/createTask", apiKey, &createTaskRequest{
		Model:       model,
		Input:       input,
		CallBackURL: callbackURL,
	})
	if err != nil {
		return "", err
	}

	taskID, err := decodeTaskID(raw, "create "+model+" task")
	if err != nil {
		c.logger.Warn("task rejected", zap.String("model", model), zap.Error(err))
		return "", err
	}
	c.logger.Info("task created", zap.String("model", model), zap.String("task_id", taskID))
	return taskID, nil
}

// CreateVeoTask submits the flat Veo body to the Veo endpoint.
func (c *Client) CreateVeoTask(ctx context.Context, apiKey string, req VeoRequest) (string, error) {
	if err := requireKey(apiKey); err != nil {
		return "", err
	}
	req.EnableFallback = false

	raw, err := c.do(ctx, "create_veo_task", http.MethodPost, c.baseURL+"/veo/generate", apiKey, &req)
	if err != nil {
		return "", err
	}

	taskID, err := decodeTaskID(raw, "create veo "+req.Model+" task")
	if err != nil {
		c.logger.Warn("veo task rejected", zap.String("model", req.Model), zap.Error(err))
		return "", err
	}
	c.logger.Info("veo task created",
		zap.String("model", req.Model),
		zap.String("generation_type", string(req.GenerationType)),
		zap.String("task_id", taskID))
	return taskID, nil
}

func decodeTaskID(raw *rawResponse, what string) (string, error) {
	var env envelope[createTaskData]
	if err := json.Unmarshal(raw.body, &env); err != nil {
		return "", apperrors.RemoteRejected(fmt.Sprintf("%s: unreadable response (%s)", what, raw.statusText()))
	}
	if env.Code != http.StatusOK || env.Data == nil || env.Data.TaskID == "" {
		return "", apperrors.RemoteRejected(fmt.Sprintf("%s: %s", what, msgOr(env.Msg, "unknown error")))
	}
	return env.Data.TaskID, nil
}

// RecordInfo queries the current state of a task. It never mutates the task.
func (c *Client) RecordInfo(ctx context.Context, apiKey, taskID string) (*TaskRecord, error) {
	if err := requireKey(apiKey); err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/jobs/recordInfo?" + url.Values{"taskId": {taskID}}.Encode()
	raw, err := c.do(ctx, "record_info", http.MethodGet, endpoint, apiKey, nil)
	if err != nil {
		return nil, err
	}

	var env envelope[TaskRecord]
	if err := json.Unmarshal(raw.body, &env); err != nil {
		return nil, apperrors.RemoteRejected(fmt.Sprintf("query task %s: unreadable response (%s)", taskID, raw.statusText()))
	}
	if env.Code != http.StatusOK || env.Data == nil {
		return nil, apperrors.RemoteRejected(fmt.Sprintf("query task %s: %s", taskID, msgOr(env.Msg, "unknown error")))
	}
	return env.Data, nil
}

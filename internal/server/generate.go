package server

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tool-pressure/xiaohongshu/config"
	"github.com/tool-pressure/xiaohongshu/internal/agent/core"
	"github.com/tool-pressure/xiaohongshu/models"
)

type generatePublishRequest struct {
	Topic string `json:"topic"`
}

// generateAndPublish submits a workflow run. The run executes in the
// background; its progress is polled via /api/status/:task_id.
func (s *Server) generateAndPublish(c echo.Context) error {
	var req generatePublishRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Topic == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "请输入主题")
	}

	s.mu.RLock()
	cfg := *s.cfg
	s.mu.RUnlock()
	if err := cfg.ValidateRunReady(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "请先完成配置")
	}

	now := time.Now()
	run := models.Run{
		ID:        uuid.NewString(),
		Topic:     req.Topic,
		Status:    models.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.runs.SaveRun(c.Request().Context(), run); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	go s.runWorkflow(run, cfg)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "任务已提交",
		"task_id": run.ID,
		"status":  string(models.RunStatusRunning),
	})
}

// runWorkflow executes a run in the background and records its outcome.
func (s *Server) runWorkflow(run models.Run, cfg config.Config) {
	ctx := context.Background()
	t0 := time.Now()

	gen, err := s.factory(ctx, cfg)
	if err != nil {
		s.logger.Printf("run %s: workflow setup failed: %v", run.ID, err)
		s.finishRun(ctx, run, nil, err.Error())
		return
	}

	report := gen.GenerateAndPublish(ctx, run.Topic)
	if s.tele != nil {
		s.tele.RecordRun(report.Success, time.Since(t0))
		for _, outcome := range report.FullResults {
			s.tele.RecordStep(outcome.StepID, outcome.TotalIterations)
		}
	}
	s.finishRun(ctx, run, &report, report.Error)
}

func (s *Server) finishRun(ctx context.Context, run models.Run, report *core.Report, errMsg string) {
	run.Report = report
	run.Error = errMsg
	run.UpdatedAt = time.Now()
	if report != nil && report.Success {
		run.Status = models.RunStatusCompleted
	} else {
		run.Status = models.RunStatusFailed
	}
	if err := s.runs.SaveRun(ctx, run); err != nil {
		s.logger.Printf("run %s: save failed: %v", run.ID, err)
	}
}

// taskStatus reports on a submitted run.
func (s *Server) taskStatus(c echo.Context) error {
	id := c.Param("task_id")
	run, err := s.runs.GetRun(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrRunNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "任务不存在")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := map[string]interface{}{
		"success": true,
		"task_id": run.ID,
		"topic":   run.Topic,
		"status":  string(run.Status),
	}
	if run.Status != models.RunStatusRunning {
		resp["progress"] = 100
	}
	if run.Error != "" {
		resp["error"] = run.Error
	}
	if run.Report != nil && run.Report.Success {
		resp["data"] = map[string]interface{}{
			"title":          run.Report.Title,
			"content":        run.Report.Content,
			"tags":           run.Report.Tags,
			"images":         run.Report.Images,
			"publish_status": run.Report.PublishStatus,
			"publish_time":   run.UpdatedAt.Format("2006-01-02 15:04:05"),
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// listRuns returns the run history, newest first.
func (s *Server) listRuns(c echo.Context) error {
	runs, err := s.runs.ListRuns(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })

	items := make([]map[string]interface{}, 0, len(runs))
	for _, run := range runs {
		item := map[string]interface{}{
			"task_id":    run.ID,
			"topic":      run.Topic,
			"status":     string(run.Status),
			"created_at": run.CreatedAt.Format("2006-01-02 15:04:05"),
			"updated_at": run.UpdatedAt.Format("2006-01-02 15:04:05"),
		}
		if run.Error != "" {
			item["error"] = run.Error
		}
		items = append(items, item)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"total":   len(items),
		"tasks":   items,
	})
}

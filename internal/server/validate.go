package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tool-pressure/xiaohongshu/provider"
)

type validateModelRequest struct {
	LLMAPIKey     string `json:"llm_api_key"`
	OpenAIBaseURL string `json:"openai_base_url"`
	ModelName     string `json:"model_name"`
}

type testLoginRequest struct {
	XHSMCPURL string `json:"xhs_mcp_url"`
}

// validateModel sends a one-message probe completion to check that the
// configured model actually answers.
func (s *Server) validateModel(c echo.Context) error {
	var req validateModelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.LLMAPIKey == "" || req.OpenAIBaseURL == "" || req.ModelName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "请检查LLM API key、Base URL和模型名称是否填写完整")
	}

	adapter := s.adapterFor(provider.Options{
		APIKey:  req.LLMAPIKey,
		BaseURL: req.OpenAIBaseURL,
		Model:   req.ModelName,
	})
	_, err := adapter.ChatCompletion(c.Request().Context(), provider.Request{
		Messages: []provider.ChatMessage{{Role: "user", Content: "Hi"}},
	})
	if err != nil {
		if isModelNotFound(err) {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("模型 %s 不存在或不可用", req.ModelName))
		}
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("模型验证失败: %v", err))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("模型 %s 验证成功", req.ModelName),
		"model":   req.ModelName,
	})
}

func isModelNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "model_not_found") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "invalid model")
}

// testLogin probes the publisher service health endpoint.
func (s *Server) testLogin(c echo.Context) error {
	var req testLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.XHSMCPURL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "请提供小红书MCP服务地址")
	}

	url := strings.TrimRight(req.XHSMCPURL, "/") + "/health"
	resp, err := s.probe.Get(url)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("无法连接到MCP服务: %v", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("服务响应异常: %d", resp.StatusCode))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "小红书MCP服务连接成功",
		"status":  "connected",
	})
}

package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type configRequest struct {
	APIProvider   string `json:"api_provider"`
	LLMAPIKey     string `json:"llm_api_key"`
	OpenAIBaseURL string `json:"openai_base_url"`
	DefaultModel  string `json:"default_model"`
	JinaAPIKey    string `json:"jina_api_key"`
	TavilyAPIKey  string `json:"tavily_api_key"`
	SerperAPIKey  string `json:"serper_api_key"`
	XHSMCPURL     string `json:"xhs_mcp_url"`
}

// getConfig returns the settings with key material masked.
func (s *Server) getConfig(c echo.Context) error {
	s.mu.RLock()
	cfg := *s.cfg
	s.mu.RUnlock()

	safe := map[string]interface{}{
		"api_provider":    cfg.LLM.Provider,
		"llm_api_key":     maskSecret(cfg.LLM.APIKey),
		"openai_base_url": cfg.LLM.BaseURL,
		"default_model":   cfg.LLM.Model,
		"jina_api_key":    maskSecret(cfg.Tools.JinaAPIKey),
		"tavily_api_key":  maskSecret(cfg.Tools.TavilyAPIKey),
		"serper_api_key":  maskSecret(cfg.Tools.SerperAPIKey),
		"xhs_mcp_url":     cfg.MCP.XHSURL,
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "config": safe})
}

// saveConfig updates the settings and persists them to disk.
func (s *Server) saveConfig(c echo.Context) error {
	var req configRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.LLMAPIKey == "" || req.OpenAIBaseURL == "" || req.DefaultModel == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "缺少必填字段")
	}
	if req.APIProvider == "" {
		req.APIProvider = "openai"
	}

	s.mu.Lock()
	s.cfg.LLM.Provider = req.APIProvider
	s.cfg.LLM.APIKey = req.LLMAPIKey
	s.cfg.LLM.BaseURL = req.OpenAIBaseURL
	s.cfg.LLM.Model = req.DefaultModel
	s.cfg.Tools.JinaAPIKey = req.JinaAPIKey
	s.cfg.Tools.TavilyAPIKey = req.TavilyAPIKey
	s.cfg.Tools.SerperAPIKey = req.SerperAPIKey
	s.cfg.MCP.XHSURL = req.XHSMCPURL
	err := s.cfg.Save(s.cfgPath)
	s.mu.Unlock()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "message": "配置保存成功"})
}

func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	return "***"
}

package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/drug-interaction/backend/internal/middleware/validation"
	"github.com/drug-interaction/backend/internal/screening"
	"github.com/drug-interaction/backend/pkg/logger"
)

const checkTimeout = 30 * time.Second

type inboundMessage struct {
	Type  string   `json:"type"`
	Names []string `json:"names"`
}

type jsonWriter interface {
	WriteJSON(v interface{}) error
}

// WebSocketHandler streams a check as it completes: a status frame, one
// frame per alert in report order, then a summary.
type WebSocketHandler struct {
	screener Screener
	limits   validation.Config
	timeout  time.Duration
}

func NewWebSocketHandler(screener Screener, limits validation.Config) *WebSocketHandler {
	return &WebSocketHandler{
		screener: screener,
		limits:   limits,
		timeout:  checkTimeout,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg inboundMessage
		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "check" {
			continue
		}

		if err := h.streamCheck(c, msg.Names); err != nil {
			logger.Error("Failed to stream check", zap.Error(err))
			break
		}
	}
}

// streamCheck only returns write errors; check failures go to the client.
func (h *WebSocketHandler) streamCheck(w jsonWriter, names []string) error {
	if err := validation.ValidateNames(h.limits, names); err != nil {
		return h.sendError(w, err.Error())
	}

	if err := h.sendStatus(w, fmt.Sprintf("Checking %d names...", len(names))); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	res, err := h.screener.Check(ctx, names)
	if err != nil {
		logger.Warn("WebSocket check failed", zap.Error(err))
		msg := "Failed to check interactions"
		if statusFor(err) == fiber.StatusServiceUnavailable {
			msg = "Drug catalog unavailable"
		}
		return h.sendError(w, msg)
	}

	for i := range res.Alerts {
		if err := w.WriteJSON(map[string]interface{}{
			"type":  "alert",
			"alert": res.Alerts[i],
		}); err != nil {
			return err
		}
	}

	return h.sendComplete(w, res)
}

func (h *WebSocketHandler) sendStatus(w jsonWriter, content string) error {
	return w.WriteJSON(map[string]interface{}{
		"type":    "status",
		"content": content,
	})
}

func (h *WebSocketHandler) sendComplete(w jsonWriter, res *screening.CheckResult) error {
	return w.WriteJSON(map[string]interface{}{
		"type":               "complete",
		"check_id":           res.CheckID,
		"cached":             res.Cached,
		"matches":            res.Matches,
		"rejected":           res.Rejected,
		"total_interactions": res.TotalInteractions,
		"max_risk_score":     res.MaxRiskScore,
		"risk_level":         res.RiskLevel,
		"recommendations":    res.Recommendations,
	})
}

func (h *WebSocketHandler) sendError(w jsonWriter, errorMsg string) error {
	return w.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/roadvlm/roadvlm-go-sdk/models"
)

// criticalConfidence is the minimum prediction confidence that triggers
// an alert callback for safety-critical actions.
const criticalConfidence = 0.8

// ActionHandler consumes completed analyses, forwards them to the
// client and raises alerts for safety-critical predictions.
type ActionHandler struct {
	session  *DriveSession
	isActive bool
}

func InitActionHandler(session *DriveSession) *ActionHandler {
	session.Logger.Info("Initializing Action Handler...")

	actionHandler := &ActionHandler{
		session:  session,
		isActive: true,
	}

	session.Logger.Info("Action Handler initialized")

	// Start the continuous result processing goroutine
	go actionHandler.run()

	return actionHandler
}

func (h *ActionHandler) run() {
	h.session.Logger.Info("Action handler goroutine started")

	for h.isActive {
		select {
		case output, ok := <-h.session.ResultCh:
			if !ok {
				h.session.Logger.Info("Result channel closed")
				return
			}
			h.session.sendWebSocketMessage("analysis", output)

			if output.Prediction != nil {
				h.session.Logger.Info("Driving action predicted",
					zap.String("image_id", output.ImageID),
					zap.String("action", string(output.Prediction.Action)),
					zap.Float64("confidence", output.Prediction.Confidence),
					zap.Int("objects", len(output.Objects)))

				if isCriticalAction(*output.Prediction) {
					go h.triggerAlert(output)
				}
			}

		case <-h.session.CurrentContext.Done():
			h.session.Logger.Debug("Action handler context cancelled, waiting for new context")
			// Don't exit, just wait for the next context to be created
		}
	}

	h.session.Logger.Info("Action handler goroutine stopped")
}

func isCriticalAction(prediction models.Prediction) bool {
	if prediction.Confidence < criticalConfidence {
		return false
	}
	return prediction.Action == models.ActionStop || prediction.Action == models.ActionSlowDown
}

// triggerAlert notifies the configured alert endpoint about a
// safety-critical prediction.
func (h *ActionHandler) triggerAlert(output models.AnalysisOutput) {
	alertEndpoint := os.Getenv("ALERT_ENDPOINT")
	apiKey := os.Getenv("ALERT_API_KEY")

	if alertEndpoint == "" || apiKey == "" {
		h.session.Logger.Debug("Alert endpoint not configured, skipping alert")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	payload := map[string]interface{}{
		"session_id": h.session.ID,
		"image_id":   output.ImageID,
		"action":     output.Prediction.Action,
		"confidence": output.Prediction.Confidence,
		"context":    output.SceneContext,
		"timestamp":  time.Now(),
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		h.session.Logger.Error("Failed to marshal alert payload", zap.Error(err))
		return
	}

	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(ctx, "POST", alertEndpoint, bytes.NewBuffer(payloadBytes))
	if err != nil {
		h.session.Logger.Error("Failed to create alert request", zap.Error(err))
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		h.session.Logger.Error("Failed to call alert endpoint", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		h.session.Logger.Info("Alert delivered",
			zap.String("action", string(output.Prediction.Action)),
			zap.String("image_id", output.ImageID))
	} else {
		h.session.Logger.Error("Alert endpoint returned error status", zap.Int("status", resp.StatusCode))
	}
}

func (h *ActionHandler) Close() {
	h.session.Logger.Info("Closing Action Handler")
	h.isActive = false
}

package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/roadvlm/roadvlm-go-sdk/models"
)

type analyzeRequest struct {
	Image    string `json:"image"`    // base64-encoded JPEG or PNG
	ImageID  string `json:"image_id"` // optional caller-supplied identifier
	Strategy string `json:"strategy"` // line | json | multicall, default json
}

type analyzeError struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// HandleAnalyze serves one-shot analysis requests outside a drive
// session.
func HandleAnalyze(w http.ResponseWriter, r *http.Request, redisClient *redis.Client) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAnalyzeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "bad_request")
		return
	}

	imageData, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		writeAnalyzeError(w, http.StatusBadRequest, "image must be base64-encoded: "+err.Error(), "bad_request")
		return
	}

	strategy := StrategyJSON
	switch ParseStrategy(req.Strategy) {
	case StrategyLine, StrategyJSON, StrategyMultiCall:
		strategy = ParseStrategy(req.Strategy)
	case "":
	default:
		writeAnalyzeError(w, http.StatusBadRequest, "unknown strategy "+req.Strategy, "bad_request")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 120*time.Second)
	defer cancel()

	analyzer := NewSceneAnalyzer(redisClient, strategy)
	output, err := analyzer.Analyze(ctx, imageData, req.ImageID)
	if err != nil {
		// Distinguish "the model output could not be understood" from
		// collaborator failures.
		if models.IsOutputError(err) {
			zap.L().Error("Model output could not be understood", zap.Error(err))
			writeAnalyzeError(w, http.StatusUnprocessableEntity, err.Error(), "model_output")
			return
		}
		zap.L().Error("Analysis failed", zap.Error(err))
		writeAnalyzeError(w, http.StatusBadGateway, err.Error(), "upstream")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(output)
}

func writeAnalyzeError(w http.ResponseWriter, status int, message, kind string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(analyzeError{Error: message, Kind: kind})
}

// HandleHealthCheck reports service liveness.
func HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
	})
}

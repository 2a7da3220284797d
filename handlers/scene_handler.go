package handlers

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pinecone-io/go-pinecone/pinecone"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/roadvlm/roadvlm-go-sdk/models"
	"github.com/roadvlm/roadvlm-go-sdk/parser"
	"github.com/roadvlm/roadvlm-go-sdk/utils"
)

// ParseStrategy selects which response contract is used for the driving
// prediction. It is explicit caller configuration; the parser never
// guesses from content.
type ParseStrategy string

const (
	StrategyLine      ParseStrategy = "line"
	StrategyJSON      ParseStrategy = "json"
	StrategyMultiCall ParseStrategy = "multicall"
)

// SceneHandler runs the full analysis pipeline for one session: model
// calls, response parsing, coordinate rescaling, assembly, caching and
// scene memory.
type SceneHandler struct {
	session      *DriveSession // nil for one-shot HTTP analysis
	ollamaClient *utils.OllamaClient
	cache        *utils.AnalysisCache
	pineconeIdx  *pinecone.IndexConnection
	dashcam      *utils.DashcamCapture
	logger       *zap.Logger
	strategy     ParseStrategy
	isActive     bool
}

func InitSceneHandler(session *DriveSession) *SceneHandler {
	session.Logger.Info("Initializing Scene Handler...")

	ollamaClient := utils.NewOllamaClient()

	pineconeIdx, err := utils.GetPineconeIndex(&session.ID)
	if err != nil {
		session.Logger.Warn("Failed to initialize Pinecone connection", zap.Error(err))
		// Continue without Pinecone - we'll still do scene analysis
	}

	sceneHandler := &SceneHandler{
		session:      session,
		ollamaClient: ollamaClient,
		cache:        utils.NewAnalysisCache(session.RedisClient),
		pineconeIdx:  pineconeIdx,
		dashcam:      utils.NewDashcamCapture(),
		logger:       session.Logger,
		isActive:     true,
	}

	session.Logger.Info("Scene Handler initialized")

	// Start the continuous frame processing goroutine
	go sceneHandler.run()

	return sceneHandler
}

// NewSceneAnalyzer builds a session-less handler for one-shot HTTP
// analysis requests.
func NewSceneAnalyzer(redisClient *redis.Client, strategy ParseStrategy) *SceneHandler {
	return &SceneHandler{
		ollamaClient: utils.NewOllamaClient(),
		cache:        utils.NewAnalysisCache(redisClient),
		dashcam:      utils.NewDashcamCapture(),
		logger:       zap.L(),
		strategy:     strategy,
		isActive:     true,
	}
}

func (h *SceneHandler) run() {
	h.session.Logger.Info("Scene handler goroutine started")

	for h.isActive {
		b64, ok := <-h.session.FrameCh
		if !ok || b64 == SessionEnd {
			h.session.Logger.Info("Scene handler received SESSION_END")
			return
		}

		frameBytes, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			h.session.Logger.Error("failed to decode frame data", zap.Error(err))
			continue
		}

		go h.analyzeFrame(frameBytes)
	}
	h.session.Logger.Info("Scene handler goroutine stopped")
}

func (h *SceneHandler) analyzeFrame(imageData []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	output, err := h.Analyze(ctx, imageData, "")
	if err != nil {
		if models.IsOutputError(err) {
			h.session.Logger.Error("Model output could not be understood", zap.Error(err))
		} else {
			h.session.Logger.Error("Scene analysis failed", zap.Error(err))
		}
		return
	}

	select {
	case h.session.ResultCh <- *output:
		h.session.Logger.Debug("Sent analysis result to channel", zap.String("image_id", output.ImageID))
	default:
		h.session.Logger.Warn("Result channel full, dropping analysis", zap.String("image_id", output.ImageID))
	}
}

// Analyze runs the whole pipeline for one image. Bounding boxes are
// rescaled to the image's own pixel space; if rescaling is disabled on
// the session they stay in the internal millirange.
func (h *SceneHandler) Analyze(ctx context.Context, imageData []byte, imageID string) (*models.AnalysisOutput, error) {
	start := time.Now()

	width, height, err := utils.ValidateImageBytes(imageData)
	if err != nil {
		return nil, fmt.Errorf("image validation failed: %w", err)
	}

	if imageID == "" {
		imageID = uuid.New().String()
	}

	strategy := h.currentStrategy()

	space := models.SpaceMillirange
	if h.rescaleEnabled() {
		space = models.SpacePixel
	}
	cacheKey := h.cache.Key(imageData, string(strategy), space)
	if cached, err := h.cache.Get(ctx, cacheKey); err != nil {
		h.logger.Warn("Analysis cache lookup failed", zap.Error(err))
	} else if cached != nil {
		h.logger.Debug("Analysis cache hit", zap.String("image_id", cached.ImageID))
		return cached, nil
	}

	// Scene analysis: objects and context from the JSON dialect.
	sceneRaw, err := h.ollamaClient.ChatJSON(ctx, utils.ScenePrompt(), imageData)
	if err != nil {
		return nil, fmt.Errorf("scene analysis call failed: %w", err)
	}

	sceneResult, err := parser.ParseSceneJSON(sceneRaw)
	if err != nil {
		return nil, err
	}

	for _, dropped := range sceneResult.Dropped {
		h.logger.Warn("Dropped detected object",
			zap.String("image_id", imageID),
			zap.Int("index", dropped.Index),
			zap.String("reason", dropped.Reason))
	}

	objects := sceneResult.Objects
	if h.rescaleEnabled() {
		objects, err = parser.RescaleObjects(objects, width, height)
		if err != nil {
			return nil, fmt.Errorf("failed to rescale objects: %w", err)
		}
	}

	// Driving prediction via the configured strategy.
	prediction, direction, err := h.predict(ctx, imageData, strategy)
	if err != nil {
		return nil, err
	}

	output, err := parser.Assemble(parser.AssembleInput{
		Prediction:     prediction,
		Objects:        objects,
		SceneContext:   &sceneResult.Context,
		Direction:      direction,
		ImageID:        imageID,
		ProcessingTime: time.Since(start).Seconds(),
	})
	if err != nil {
		return nil, err
	}

	if err := h.cache.Set(ctx, cacheKey, output); err != nil {
		h.logger.Warn("Failed to cache analysis", zap.Error(err))
	}

	if h.pineconeIdx != nil {
		go h.storeSceneMemory(*output)
	}

	return output, nil
}

// predict runs the prediction call(s) for the chosen response contract.
// Only the multi-call strategy produces a steering direction.
func (h *SceneHandler) predict(ctx context.Context, imageData []byte, strategy ParseStrategy) (*models.Prediction, *models.Direction, error) {
	switch strategy {
	case StrategyLine:
		raw, err := h.ollamaClient.Chat(ctx, utils.LinePrompt(), imageData)
		if err != nil {
			return nil, nil, fmt.Errorf("prediction call failed: %w", err)
		}
		prediction, _, err := parser.ParseLineResponse(raw)
		if err != nil {
			return nil, nil, err
		}
		return prediction, nil, nil

	case StrategyJSON:
		raw, err := h.ollamaClient.ChatJSON(ctx, utils.PredictionPrompt(), imageData)
		if err != nil {
			return nil, nil, fmt.Errorf("prediction call failed: %w", err)
		}
		prediction, _, err := parser.ParsePredictionJSON(raw)
		if err != nil {
			return nil, nil, err
		}
		return prediction, nil, nil

	case StrategyMultiCall:
		responses := parser.MultiCallResponses{}
		calls := []struct {
			prompt string
			target *string
		}{
			{utils.ActionSubPrompt(), &responses.Action},
			{utils.ContextSubPrompt(), &responses.Context},
			{utils.DirectionSubPrompt(), &responses.Direction},
		}
		for _, call := range calls {
			raw, err := h.ollamaClient.Chat(ctx, call.prompt, imageData)
			if err != nil {
				return nil, nil, fmt.Errorf("prediction call failed: %w", err)
			}
			*call.target = raw
		}
		prediction, _, direction, err := parser.ParseMultiCall(responses)
		if err != nil {
			return nil, nil, err
		}
		return prediction, direction, nil

	default:
		return nil, nil, fmt.Errorf("unknown parse strategy %q", strategy)
	}
}

func (h *SceneHandler) currentStrategy() ParseStrategy {
	if h.session != nil {
		return h.session.Strategy
	}
	if h.strategy == "" {
		return StrategyJSON
	}
	return h.strategy
}

func (h *SceneHandler) rescaleEnabled() bool {
	if h.session != nil {
		return h.session.RescaleToPixels
	}
	return true
}

func (h *SceneHandler) storeSceneMemory(output models.AnalysisOutput) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	h.logger.Debug("Storing scene in Pinecone", zap.String("image_id", output.ImageID))

	summary := sceneSummary(output)

	embedding, err := utils.VectorizePrompt("text-embedding-ada-002", ctx, summary)
	if err != nil {
		h.logger.Error("Failed to create embedding", zap.Error(err), zap.String("text", summary))
		return
	}

	metadata := map[string]interface{}{
		"text":         summary,
		"weather":      string(output.SceneContext.Weather),
		"time_of_day":  string(output.SceneContext.TimeOfDay),
		"road_type":    output.SceneContext.RoadType,
		"object_count": len(output.Objects),
		"image_id":     output.ImageID,
		"timestamp":    time.Now().Unix(),
		"type":         "scene_analysis",
	}
	if output.Prediction != nil {
		metadata["action"] = string(output.Prediction.Action)
	}

	vectorID := fmt.Sprintf("%s-scene", output.ImageID)
	if err := utils.UpsertToPinecone(ctx, h.pineconeIdx, vectorID, embedding, metadata); err != nil {
		h.logger.Error("Failed to upsert to Pinecone", zap.Error(err), zap.String("vector_id", vectorID))
		return
	}

	h.logger.Debug("Scene stored in Pinecone", zap.String("vector_id", vectorID))
}

// sceneSummary renders one analysis as text for embedding.
func sceneSummary(output models.AnalysisOutput) string {
	summary := fmt.Sprintf("%s %s on %s",
		output.SceneContext.Weather, output.SceneContext.TimeOfDay, output.SceneContext.RoadType)
	if output.Prediction != nil {
		summary += fmt.Sprintf(", recommended action %s (%.2f)",
			output.Prediction.Action, output.Prediction.Confidence)
	}
	for _, obj := range output.Objects {
		summary += fmt.Sprintf(", %s (%.2f)", obj.Type, obj.Confidence)
	}
	return summary
}

// RecallSimilarScenes returns summaries of stored scenes similar to
// the description, best match first.
func (h *SceneHandler) RecallSimilarScenes(ctx context.Context, description string) ([]string, error) {
	if h.pineconeIdx == nil {
		return nil, fmt.Errorf("scene memory is not configured")
	}
	return utils.FetchSimilarScenes(ctx, h.pineconeIdx, description)
}

// CaptureFrame grabs one frame from the server-side dashcam.
func (h *SceneHandler) CaptureFrame() ([]byte, error) {
	return h.dashcam.CaptureFrame()
}

func (h *SceneHandler) Close() {
	h.logger.Info("Closing Scene Handler")
	h.isActive = false
}

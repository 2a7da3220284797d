package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/roadvlm/roadvlm-go-sdk/models"
)

// SessionEnd is the in-band stop marker sent through session channels.
const SessionEnd = "<SESSION_END>"

// DriveSession is one connected dashcam/vehicle client streaming frames
// for analysis.
type DriveSession struct {
	ID                   string
	CurrentContext       context.Context
	CancelCurrentContext context.CancelFunc
	Connection           *websocket.Conn
	RedisClient          *redis.Client
	Logger               *zap.Logger

	// Channels for communication between handlers
	FrameCh  chan string
	ResultCh chan models.AnalysisOutput

	// Session state
	IsActive     bool
	StartTime    time.Time
	LastActivity time.Time
	stopOnce     sync.Once

	// Configuration
	Strategy        ParseStrategy // which prediction response contract to use
	RescaleToPixels bool          // rescale bboxes to the source image's pixel space

	SceneHandler  *SceneHandler
	ActionHandler *ActionHandler
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow connections from any origin
	},
}

func NewDriveSession(id string, conn *websocket.Conn, redisClient *redis.Client) *DriveSession {
	ctx, cancel := context.WithCancel(context.Background())

	// Create a logger with session ID context
	logger := zap.L().With(zap.String("session_id", id))

	session := &DriveSession{
		ID:                   id,
		CurrentContext:       ctx,
		CancelCurrentContext: cancel,
		Connection:           conn,
		RedisClient:          redisClient,
		Logger:               logger,

		FrameCh:  make(chan string, 100),
		ResultCh: make(chan models.AnalysisOutput, 10),

		IsActive:     true,
		StartTime:    time.Now(),
		LastActivity: time.Now(),

		Strategy:        StrategyJSON,
		RescaleToPixels: true,
	}

	return session
}

func (ds *DriveSession) UpdateContext() {
	ds.CancelCurrentContext()
	ds.CurrentContext, ds.CancelCurrentContext = context.WithCancel(context.Background())
	ds.LastActivity = time.Now()
}

// Stop tears the session down. Safe to call more than once; the client
// "stop" message and the connection-close cleanup path can both reach it.
func (ds *DriveSession) Stop() {
	ds.stopOnce.Do(func() {
		ds.Logger.Info("Stopping session")
		ds.IsActive = false

		// Send SessionEnd to stop the frame goroutine
		select {
		case ds.FrameCh <- SessionEnd:
		default:
		}

		// Cancel current context
		ds.CancelCurrentContext()

		// The frame channel has no senders left once the read loop is
		// done, so closing it is safe. ResultCh stays open: an in-flight
		// analysis goroutine may still try to send a late result, and
		// that send must hit the default branch, not a closed channel.
		close(ds.FrameCh)

		if ds.Connection != nil {
			ds.Connection.Close()
		}
	})
}

func (ds *DriveSession) Close() {
	ds.Stop()
}

type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

func HandleDriveSession(w http.ResponseWriter, r *http.Request, redisClient *redis.Client) {
	// Upgrade HTTP connection to WebSocket
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Error("Failed to upgrade to websocket", zap.Error(err))
		return
	}
	defer conn.Close()

	// Create new drive session
	sessionID := uuid.New().String()
	session := NewDriveSession(sessionID, conn, redisClient)
	session.Logger.Info("New drive session started")

	actionHandler := InitActionHandler(session)
	session.ActionHandler = actionHandler

	sceneHandler := InitSceneHandler(session)
	session.SceneHandler = sceneHandler

	// Start the heartbeat goroutine
	go session.handleSessionOrchestrator(sceneHandler, actionHandler)

	// Handle incoming websocket messages (blocks until the client leaves)
	session.listenWebsocketMessages(conn)

	// Clean up session
	session.Logger.Info("Drive session ended")
	session.Stop()
}

func (session *DriveSession) listenWebsocketMessages(conn *websocket.Conn) {
	for {
		var msg WebSocketMessage
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				session.Logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		// Handle different message types
		switch msg.Type {
		case "config":
			session.handleConfigMessage(msg.Data)
		case "frame":
			session.handleFrameData(msg.Data)
		case "capture":
			session.handleCaptureRequest()
		case "recall":
			session.handleRecallRequest(msg.Data)
		case "ping":
			session.sendWebSocketMessage("pong", nil)
		case "stop":
			session.Logger.Info("Received stop command from client")
			session.sendWebSocketMessage("stop_confirmation", map[string]interface{}{
				"session_id": session.ID,
				"message":    "Session stopped successfully",
			})
			session.Stop()
			return
		default:
			session.Logger.Warn("Unknown message type", zap.String("type", msg.Type))
		}
	}
}

func (session *DriveSession) handleSessionOrchestrator(sceneHandler *SceneHandler, actionHandler *ActionHandler) {
	session.Logger.Info("Session orchestrator started")

	for session.IsActive {
		time.Sleep(30 * time.Second)
		// Periodic heartbeat
		session.Logger.Debug("Session heartbeat")
		session.sendWebSocketMessage("heartbeat", map[string]interface{}{
			"session_id": session.ID,
			"uptime":     time.Since(session.StartTime).String(),
		})
	}

	// Cleanup handlers
	session.Logger.Info("Cleaning up handlers")
	sceneHandler.Close()
	actionHandler.Close()
}

func (session *DriveSession) handleConfigMessage(data interface{}) {
	configData, ok := data.(map[string]interface{})
	if !ok {
		session.Logger.Error("Invalid config data format")
		return
	}

	// Parse prediction strategy
	if strategy, exists := configData["strategy"]; exists {
		if strategyStr, ok := strategy.(string); ok {
			switch ParseStrategy(strategyStr) {
			case StrategyLine, StrategyJSON, StrategyMultiCall:
				session.Strategy = ParseStrategy(strategyStr)
				session.Logger.Info("Updated parse strategy", zap.String("strategy", strategyStr))
			default:
				session.Logger.Warn("Unknown parse strategy", zap.String("strategy", strategyStr))
			}
		}
	}

	// Parse rescale flag
	if rescale, exists := configData["rescale_to_pixels"]; exists {
		if rescaleBool, ok := rescale.(bool); ok {
			session.RescaleToPixels = rescaleBool
			session.Logger.Info("Updated rescale setting", zap.Bool("rescale_to_pixels", rescaleBool))
		}
	}

	session.sendWebSocketMessage("config_updated", map[string]interface{}{
		"strategy":          string(session.Strategy),
		"rescale_to_pixels": session.RescaleToPixels,
	})
}

func (session *DriveSession) handleFrameData(data interface{}) {
	session.Logger.Debug("Received frame data")

	b64, ok := data.(string)
	if !ok {
		if structured, isMap := data.(map[string]interface{}); isMap {
			if payload, hasPayload := structured["payload"].(string); hasPayload {
				b64 = payload
				ok = true
			}
		}
	}
	if !ok || b64 == "" {
		session.Logger.Warn("Unknown frame data format")
		return
	}

	select {
	case session.FrameCh <- b64:
	default:
		session.Logger.Warn("Frame channel full, dropping frame")
	}
	session.LastActivity = time.Now()
}

func (session *DriveSession) handleCaptureRequest() {
	session.Logger.Debug("Server-side capture requested")

	frame, err := session.SceneHandler.CaptureFrame()
	if err != nil {
		session.Logger.Error("Failed to capture frame", zap.Error(err))
		session.sendWebSocketMessage("capture_failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	go session.SceneHandler.analyzeFrame(frame)
}

func (session *DriveSession) handleRecallRequest(data interface{}) {
	recallData, ok := data.(map[string]interface{})
	if !ok {
		session.Logger.Error("Invalid recall data format")
		return
	}
	description, _ := recallData["description"].(string)
	if description == "" {
		session.Logger.Warn("Recall request without description")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		scenes, err := session.SceneHandler.RecallSimilarScenes(ctx, description)
		if err != nil {
			session.Logger.Error("Scene recall failed", zap.Error(err))
			session.sendWebSocketMessage("recall_failed", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}

		session.sendWebSocketMessage("recall_result", map[string]interface{}{
			"description": description,
			"scenes":      scenes,
		})
	}()
}

func (session *DriveSession) sendWebSocketMessage(msgType string, data interface{}) {
	msg := WebSocketMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now(),
	}

	err := session.Connection.WriteJSON(msg)
	if err != nil {
		session.Logger.Error("Failed to send websocket message", zap.Error(err), zap.String("type", msgType))
	}
}

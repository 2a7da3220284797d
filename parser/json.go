package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roadvlm/roadvlm-go-sdk/models"
)

// bbox tolerance thresholds, as fractions of the image extent. Boxes
// below the minimum are noise, boxes above the maximum are spurious
// full-image detections.
const (
	minBboxExtent = 0.01
	maxBboxExtent = 0.9
)

// milliScale converts normalized [0,1] coordinates to the internal
// integer millirange.
const milliScale = 1000

// ParsePredictionJSON parses the single-shot prediction dialect:
//
//	{"Action": str, "Confidence": float, "Weather": str, "Time": str, "Road": str}
//
// Key names are case-sensitive. A JSON parse failure or a missing key is
// a malformed response; values are validated exactly as in the line
// format.
func ParsePredictionJSON(raw string) (*models.Prediction, *models.SceneContext, error) {
	content := strings.TrimSpace(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return nil, nil, parseFailure(content, &models.MalformedResponseError{
			Expected: "a JSON object",
			Got:      err.Error(),
			Raw:      content,
		})
	}

	stringField := func(key string) (string, error) {
		rawValue, ok := fields[key]
		if !ok {
			return "", &models.MalformedResponseError{
				Expected: fmt.Sprintf("key %q", key),
				Got:      "missing key",
				Raw:      content,
			}
		}
		var s string
		if err := json.Unmarshal(rawValue, &s); err != nil {
			return "", &models.MalformedResponseError{
				Expected: fmt.Sprintf("string value for key %q", key),
				Got:      string(rawValue),
				Raw:      content,
			}
		}
		return s, nil
	}

	actionRaw, err := stringField("Action")
	if err != nil {
		return nil, nil, parseFailure(content, err)
	}
	weatherRaw, err := stringField("Weather")
	if err != nil {
		return nil, nil, parseFailure(content, err)
	}
	timeRaw, err := stringField("Time")
	if err != nil {
		return nil, nil, parseFailure(content, err)
	}
	roadRaw, err := stringField("Road")
	if err != nil {
		return nil, nil, parseFailure(content, err)
	}

	confidenceRaw, ok := fields["Confidence"]
	if !ok {
		return nil, nil, parseFailure(content, &models.MalformedResponseError{
			Expected: `key "Confidence"`,
			Got:      "missing key",
			Raw:      content,
		})
	}
	var confidenceValue float64
	if err := json.Unmarshal(confidenceRaw, &confidenceValue); err != nil {
		return nil, nil, parseFailure(content, &models.InvalidConfidenceError{Value: string(confidenceRaw)})
	}

	action, err := models.ParseActionType(actionRaw)
	if err != nil {
		return nil, nil, parseFailure(content, err)
	}
	confidence, err := models.ConfidenceFromFloat(confidenceValue)
	if err != nil {
		return nil, nil, parseFailure(content, err)
	}
	weather, err := models.ParseWeatherCondition(weatherRaw)
	if err != nil {
		return nil, nil, parseFailure(content, err)
	}
	timeOfDay, err := models.ParseTimeOfDay(timeRaw)
	if err != nil {
		return nil, nil, parseFailure(content, err)
	}

	roadType := strings.TrimSpace(roadRaw)
	if roadType == "" {
		return nil, nil, parseFailure(content, &models.MalformedResponseError{
			Expected: "non-empty road description",
			Got:      "empty string",
			Raw:      content,
		})
	}

	prediction := &models.Prediction{Action: action, Confidence: confidence}
	sceneContext := &models.SceneContext{
		Weather:   weather,
		TimeOfDay: timeOfDay,
		RoadType:  roadType,
	}

	return prediction, sceneContext, nil
}

// DroppedObject records one object-array entry the scene parser rejected,
// so callers can assert on loss instead of discovering it from a log
// line.
type DroppedObject struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// SceneResult is the output of the scene-analysis JSON dialect.
type SceneResult struct {
	Objects []models.DetectedObject
	Context models.SceneContext
	Dropped []DroppedObject
}

type sceneObjectJSON struct {
	Type       *string                `json:"type"`
	Bbox       []float64              `json:"bbox"`
	Confidence *float64               `json:"confidence"`
	State      string                 `json:"state"`
	Metadata   map[string]interface{} `json:"metadata"`
}

type sceneContextJSON struct {
	Weather *string `json:"weather"`
	Time    *string `json:"time"`
	Road    *string `json:"road"`
}

// Object entries stay raw so a type-mismatched field inside one entry
// drops that entry alone instead of failing the whole response.
type sceneResponseJSON struct {
	Objects []json.RawMessage `json:"objects"`
	Context *sceneContextJSON `json:"context"`
}

// ParseSceneJSON parses the scene-analysis dialect:
//
//	{"objects": [{"type": str, "bbox": [x1,y1,x2,y2], "confidence": float}],
//	 "context": {"weather": str, "time": str, "road": str}}
//
// A missing "objects" key yields an empty object list; a missing
// "context" key is fatal. Individually malformed object entries are
// dropped — with a reason recorded in the result — rather than failing
// the whole response. Accepted bounding boxes are converted from
// normalized [0,1] coordinates to the internal integer millirange.
func ParseSceneJSON(raw string) (*SceneResult, error) {
	content := strings.TrimSpace(raw)

	var response sceneResponseJSON
	if err := json.Unmarshal([]byte(content), &response); err != nil {
		return nil, parseFailure(content, &models.MalformedResponseError{
			Expected: "a JSON object with 'objects' and 'context'",
			Got:      err.Error(),
			Raw:      content,
		})
	}

	if response.Context == nil {
		return nil, parseFailure(content, &models.MalformedResponseError{
			Expected: "required 'context' field",
			Got:      "missing key",
			Raw:      content,
		})
	}

	sceneContext, err := parseSceneContext(response.Context, content)
	if err != nil {
		return nil, parseFailure(content, err)
	}

	result := &SceneResult{
		Objects: []models.DetectedObject{},
		Context: *sceneContext,
	}

	for i, entryRaw := range response.Objects {
		var entry sceneObjectJSON
		if err := json.Unmarshal(entryRaw, &entry); err != nil {
			result.Dropped = append(result.Dropped, DroppedObject{Index: i, Reason: "malformed object entry: " + err.Error()})
			continue
		}

		obj, reason := parseSceneObject(entry)
		if reason != "" {
			result.Dropped = append(result.Dropped, DroppedObject{Index: i, Reason: reason})
			continue
		}
		result.Objects = append(result.Objects, *obj)
	}

	return result, nil
}

// parseSceneObject validates one object entry. A non-empty reason means
// the entry is dropped; this is per-object tolerance, not a global
// failure.
func parseSceneObject(entry sceneObjectJSON) (*models.DetectedObject, string) {
	if entry.Type == nil {
		return nil, "missing 'type'"
	}
	if entry.Confidence == nil {
		return nil, "missing 'confidence'"
	}

	objectType, err := models.ParseObjectType(*entry.Type)
	if err != nil {
		return nil, err.Error()
	}

	confidence, err := models.ConfidenceFromFloat(*entry.Confidence)
	if err != nil {
		return nil, err.Error()
	}

	if reason := validateNormalizedBbox(entry.Bbox); reason != "" {
		return nil, reason
	}

	bbox, err := models.NewBoundingBox(
		int(entry.Bbox[0]*milliScale),
		int(entry.Bbox[1]*milliScale),
		int(entry.Bbox[2]*milliScale),
		int(entry.Bbox[3]*milliScale),
		models.SpaceMillirange,
	)
	if err != nil {
		return nil, err.Error()
	}

	obj := &models.DetectedObject{
		Type:       objectType,
		Bbox:       bbox,
		Confidence: confidence,
		Metadata:   entry.Metadata,
	}

	if entry.State != "" {
		state, err := models.ParseTrafficLightState(entry.State)
		if err != nil {
			return nil, err.Error()
		}
		obj.State = state
	}

	return obj, ""
}

// validateNormalizedBbox applies the geometric tolerance rules to a
// normalized [0,1] bounding box. Returns a drop reason, or "" if the box
// is acceptable.
func validateNormalizedBbox(bbox []float64) string {
	if len(bbox) != 4 {
		return fmt.Sprintf("expected 4 bbox coordinates, got %d", len(bbox))
	}
	for _, coord := range bbox {
		if coord < 0 || coord > 1 {
			return fmt.Sprintf("bbox coordinate %v outside [0,1]", coord)
		}
	}
	if bbox[0] >= bbox[2] || bbox[1] >= bbox[3] {
		return "bbox min coordinates must be strictly below max coordinates"
	}

	width := bbox[2] - bbox[0]
	height := bbox[3] - bbox[1]
	if width < minBboxExtent || height < minBboxExtent {
		return fmt.Sprintf("bbox %vx%v below minimum extent %v", width, height, minBboxExtent)
	}
	if width > maxBboxExtent || height > maxBboxExtent {
		return fmt.Sprintf("bbox %vx%v above maximum extent %v", width, height, maxBboxExtent)
	}

	return ""
}

func parseSceneContext(ctx *sceneContextJSON, content string) (*models.SceneContext, error) {
	if ctx.Weather == nil || ctx.Time == nil || ctx.Road == nil {
		return nil, &models.MalformedResponseError{
			Expected: "'weather', 'time' and 'road' inside 'context'",
			Got:      "missing key",
			Raw:      content,
		}
	}

	weather, err := models.ParseWeatherCondition(*ctx.Weather)
	if err != nil {
		return nil, err
	}
	timeOfDay, err := models.ParseTimeOfDay(*ctx.Time)
	if err != nil {
		return nil, err
	}

	roadType := strings.TrimSpace(*ctx.Road)
	if roadType == "" {
		return nil, &models.MalformedResponseError{
			Expected: "non-empty road description",
			Got:      "empty string",
			Raw:      content,
		}
	}

	return &models.SceneContext{
		Weather:   weather,
		TimeOfDay: timeOfDay,
		RoadType:  roadType,
	}, nil
}

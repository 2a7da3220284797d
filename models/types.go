package models

import (
	"fmt"
	"regexp"
	"strings"
)

// ActionType is a driving action the model can recommend.
type ActionType string

const (
	ActionStop      ActionType = "STOP"
	ActionContinue  ActionType = "CONTINUE"
	ActionTurnLeft  ActionType = "TURN_LEFT"
	ActionTurnRight ActionType = "TURN_RIGHT"
	ActionSlowDown  ActionType = "SLOW_DOWN"
)

// ActionTypeValues lists all valid action tokens, in prompt order.
func ActionTypeValues() []string {
	return []string{
		string(ActionStop),
		string(ActionContinue),
		string(ActionTurnLeft),
		string(ActionTurnRight),
		string(ActionSlowDown),
	}
}

// ParseActionType validates a raw action token. Actions are upper-case
// tokens by contract, so matching is case-sensitive.
func ParseActionType(raw string) (ActionType, error) {
	for _, v := range ActionTypeValues() {
		if raw == v {
			return ActionType(raw), nil
		}
	}
	return "", &InvalidEnumValueError{Field: "action", Value: raw, Allowed: ActionTypeValues()}
}

// ObjectType is a category of object detected in the scene.
type ObjectType string

const (
	ObjectVehicle      ObjectType = "vehicle"
	ObjectPedestrian   ObjectType = "pedestrian"
	ObjectTrafficLight ObjectType = "traffic_light"
	ObjectTrafficSign  ObjectType = "traffic_sign"
	ObjectBus          ObjectType = "bus"
	ObjectCar          ObjectType = "car"
)

func ObjectTypeValues() []string {
	return []string{
		string(ObjectVehicle),
		string(ObjectPedestrian),
		string(ObjectTrafficLight),
		string(ObjectTrafficSign),
		string(ObjectBus),
		string(ObjectCar),
	}
}

func ParseObjectType(raw string) (ObjectType, error) {
	lowered := strings.ToLower(raw)
	for _, v := range ObjectTypeValues() {
		if lowered == v {
			return ObjectType(lowered), nil
		}
	}
	return "", &InvalidEnumValueError{Field: "type", Value: raw, Allowed: ObjectTypeValues()}
}

// WeatherCondition describes the weather visible in the scene.
type WeatherCondition string

const (
	WeatherClear  WeatherCondition = "clear"
	WeatherRainy  WeatherCondition = "rainy"
	WeatherSnowy  WeatherCondition = "snowy"
	WeatherFoggy  WeatherCondition = "foggy"
	WeatherCloudy WeatherCondition = "cloudy"
)

func WeatherConditionValues() []string {
	return []string{
		string(WeatherClear),
		string(WeatherRainy),
		string(WeatherSnowy),
		string(WeatherFoggy),
		string(WeatherCloudy),
	}
}

// ParseWeatherCondition validates a raw weather token, case-insensitively.
func ParseWeatherCondition(raw string) (WeatherCondition, error) {
	lowered := strings.ToLower(raw)
	for _, v := range WeatherConditionValues() {
		if lowered == v {
			return WeatherCondition(lowered), nil
		}
	}
	return "", &InvalidEnumValueError{Field: "weather", Value: raw, Allowed: WeatherConditionValues()}
}

// TimeOfDay is the lighting period of the scene.
type TimeOfDay string

const (
	TimeDay   TimeOfDay = "day"
	TimeNight TimeOfDay = "night"
	TimeDawn  TimeOfDay = "dawn"
	TimeDusk  TimeOfDay = "dusk"
)

func TimeOfDayValues() []string {
	return []string{
		string(TimeDay),
		string(TimeNight),
		string(TimeDawn),
		string(TimeDusk),
	}
}

// ParseTimeOfDay validates a raw time-of-day token, case-insensitively.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	lowered := strings.ToLower(raw)
	for _, v := range TimeOfDayValues() {
		if lowered == v {
			return TimeOfDay(lowered), nil
		}
	}
	return "", &InvalidEnumValueError{Field: "time", Value: raw, Allowed: TimeOfDayValues()}
}

// TrafficLightState is the state of a detected traffic light.
type TrafficLightState string

const (
	LightRed    TrafficLightState = "red"
	LightYellow TrafficLightState = "yellow"
	LightGreen  TrafficLightState = "green"
)

func TrafficLightStateValues() []string {
	return []string{string(LightRed), string(LightYellow), string(LightGreen)}
}

func ParseTrafficLightState(raw string) (TrafficLightState, error) {
	lowered := strings.ToLower(raw)
	for _, v := range TrafficLightStateValues() {
		if lowered == v {
			return TrafficLightState(lowered), nil
		}
	}
	return "", &InvalidEnumValueError{Field: "state", Value: raw, Allowed: TrafficLightStateValues()}
}

// confidencePattern accepts "0", "0.xxx", ".xxx", "1" and "1.0" forms.
var confidencePattern = regexp.MustCompile(`^(0(\.\d+)?|\.\d+|1(\.0+)?)$`)

// ParseConfidence parses a confidence token from free text. Anything
// outside the closed interval [0,1], or not numeric, is rejected.
func ParseConfidence(raw string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	if !confidencePattern.MatchString(trimmed) {
		return 0, &InvalidConfidenceError{Value: raw}
	}
	var v float64
	if _, err := fmt.Sscanf(trimmed, "%f", &v); err != nil {
		return 0, &InvalidConfidenceError{Value: raw}
	}
	return v, nil
}

// ConfidenceFromFloat range-checks an already-numeric confidence value.
func ConfidenceFromFloat(v float64) (float64, error) {
	if v < 0 || v > 1 {
		return 0, &InvalidConfidenceError{Value: fmt.Sprintf("%v", v)}
	}
	return v, nil
}

// CoordSpace tags which coordinate space a bounding box lives in, so a
// box cannot be rescaled to pixels twice.
type CoordSpace string

const (
	// SpaceMillirange is the internal integer [0,1000] space produced by
	// the scene parser (normalized [0,1] coordinates scaled by 1000).
	SpaceMillirange CoordSpace = "millirange"
	// SpacePixel is the pixel space of a concrete target image.
	SpacePixel CoordSpace = "pixel"
)

// BoundingBox is an axis-aligned box. Coordinates are non-negative
// integers with XMin < XMax and YMin < YMax.
type BoundingBox struct {
	XMin  int        `json:"x_min"`
	YMin  int        `json:"y_min"`
	XMax  int        `json:"x_max"`
	YMax  int        `json:"y_max"`
	Space CoordSpace `json:"space,omitempty"`
}

// NewBoundingBox constructs a validated bounding box.
func NewBoundingBox(xMin, yMin, xMax, yMax int, space CoordSpace) (BoundingBox, error) {
	if xMin < 0 || yMin < 0 {
		return BoundingBox{}, &MalformedResponseError{
			Expected: "non-negative bounding box coordinates",
			Got:      fmt.Sprintf("(%d, %d, %d, %d)", xMin, yMin, xMax, yMax),
		}
	}
	if xMin >= xMax || yMin >= yMax {
		return BoundingBox{}, &MalformedResponseError{
			Expected: "x_min < x_max and y_min < y_max",
			Got:      fmt.Sprintf("(%d, %d, %d, %d)", xMin, yMin, xMax, yMax),
		}
	}
	return BoundingBox{XMin: xMin, YMin: yMin, XMax: xMax, YMax: yMax, Space: space}, nil
}

func (b BoundingBox) Width() int {
	return b.XMax - b.XMin
}

func (b BoundingBox) Height() int {
	return b.YMax - b.YMin
}

// AsTuple returns the box as (x_min, y_min, x_max, y_max).
func (b BoundingBox) AsTuple() (int, int, int, int) {
	return b.XMin, b.YMin, b.XMax, b.YMax
}

// DetectedObject is one object found in a scene. It is owned by the
// object list of a single analysis result and is not mutated after
// construction except for bbox rescaling.
type DetectedObject struct {
	Type       ObjectType             `json:"type"`
	Bbox       BoundingBox            `json:"bbox"`
	Confidence float64                `json:"confidence"`
	State      TrafficLightState      `json:"state,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Prediction is the recommended driving action for a scene.
type Prediction struct {
	Action     ActionType             `json:"action"`
	Confidence float64                `json:"confidence"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Direction is a steering direction, produced only by the multi-call
// parsing strategy. Angle is in degrees, normalized to [0, 360).
type Direction struct {
	Angle      float64    `json:"angle"`
	Type       ActionType `json:"type"`
	Confidence float64    `json:"confidence"`
}

// SceneContext describes the overall driving environment.
type SceneContext struct {
	Weather   WeatherCondition       `json:"weather"`
	TimeOfDay TimeOfDay              `json:"time_of_day"`
	RoadType  string                 `json:"road_type"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// AnalysisOutput is the aggregate result for one analyzed image. It is
// constructed once by the assembler and never mutated after return.
type AnalysisOutput struct {
	Prediction     *Prediction      `json:"prediction,omitempty"`
	Objects        []DetectedObject `json:"objects"`
	SceneContext   SceneContext     `json:"scene_context"`
	Direction      *Direction       `json:"direction,omitempty"`
	ImageID        string           `json:"image_id,omitempty"`
	ProcessingTime float64          `json:"processing_time,omitempty"`
}

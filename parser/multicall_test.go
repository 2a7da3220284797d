package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/roadvlm/roadvlm-go-sdk/models"
)

func TestParseMultiCall(t *testing.T) {
	responses := MultiCallResponses{
		Action:    "Looking at the scene, I recommend the following.\nAction: SLOW_DOWN, Confidence: 0.75",
		Context:   "Weather: cloudy\nTime: dawn\nRoad: two-lane rural road\nThere is light fog on the horizon.",
		Direction: "The vehicle should bear right.\nAngle: 15.5\nAction: TURN_RIGHT, Confidence: 0.6",
	}

	prediction, sceneContext, direction, err := ParseMultiCall(responses)
	if err != nil {
		t.Fatalf("ParseMultiCall failed: %v", err)
	}

	if prediction.Action != models.ActionSlowDown || prediction.Confidence != 0.75 {
		t.Errorf("got prediction %+v", prediction)
	}
	if sceneContext.Weather != models.WeatherCloudy || sceneContext.TimeOfDay != models.TimeDawn {
		t.Errorf("got scene context %+v", sceneContext)
	}
	if sceneContext.RoadType != "two-lane rural road" {
		t.Errorf("road type = %q", sceneContext.RoadType)
	}
	if direction.Angle != 15.5 || direction.Type != models.ActionTurnRight || direction.Confidence != 0.6 {
		t.Errorf("got direction %+v", direction)
	}
}

func TestParseActionResponseMissingField(t *testing.T) {
	_, err := ParseActionResponse("Action: STOP but no confidence anywhere")
	var malformed *models.MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("got %v, want wrapped *MalformedResponseError", err)
	}
	if !strings.Contains(malformed.Got, "Confidence") {
		t.Errorf("error should name the missing field: %q", malformed.Got)
	}
}

func TestParseContextResponseMissingField(t *testing.T) {
	_, err := ParseContextResponse("Weather: clear\nRoad: highway")
	var malformed *models.MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("got %v, want wrapped *MalformedResponseError", err)
	}
	if !strings.Contains(malformed.Got, "Time") {
		t.Errorf("error should name the missing field: %q", malformed.Got)
	}
}

func TestParseDirectionResponseAngleWrapping(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"Angle: 400\nAction: TURN_LEFT, Confidence: 0.5", 40},
		{"Angle: -90\nAction: TURN_LEFT, Confidence: 0.5", 270},
		{"Angle: 360\nAction: TURN_LEFT, Confidence: 0.5", 0},
		{"Angle: 359.5\nAction: TURN_LEFT, Confidence: 0.5", 359.5},
		{"Angle: 0\nAction: TURN_LEFT, Confidence: 0.5", 0},
	}

	for _, tc := range cases {
		direction, err := ParseDirectionResponse(tc.raw)
		if err != nil {
			t.Fatalf("ParseDirectionResponse(%q) failed: %v", tc.raw, err)
		}
		if direction.Angle != tc.want {
			t.Errorf("angle for %q = %v, want %v", tc.raw, direction.Angle, tc.want)
		}
	}
}

func TestParseDirectionResponseMissingAngle(t *testing.T) {
	_, err := ParseDirectionResponse("Action: TURN_LEFT, Confidence: 0.5")
	var malformed *models.MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("got %v, want wrapped *MalformedResponseError", err)
	}
}

func TestParseMultiCallScopedFailure(t *testing.T) {
	responses := MultiCallResponses{
		Action:    "Action: STOP, Confidence: 0.9",
		Context:   "no usable fields here",
		Direction: "Angle: 10\nAction: TURN_LEFT, Confidence: 0.5",
	}

	_, _, _, err := ParseMultiCall(responses)
	var parseErr *models.ResponseParsingError
	if !errors.As(err, &parseErr) {
		t.Fatalf("got %T, want *ResponseParsingError", err)
	}
	if parseErr.Raw != responses.Context {
		t.Errorf("error should carry the failing sub-response, got %q", parseErr.Raw)
	}
}

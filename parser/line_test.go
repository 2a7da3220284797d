package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/roadvlm/roadvlm-go-sdk/models"
)

const validLineResponse = `Action: CONTINUE, Confidence: 0.89
Weather: clear
Time: day
Road: urban street with light traffic`

func TestParseLineResponse(t *testing.T) {
	prediction, sceneContext, err := ParseLineResponse(validLineResponse)
	if err != nil {
		t.Fatalf("ParseLineResponse failed: %v", err)
	}

	if prediction.Action != models.ActionContinue {
		t.Errorf("action = %q, want CONTINUE", prediction.Action)
	}
	if prediction.Confidence != 0.89 {
		t.Errorf("confidence = %v, want 0.89", prediction.Confidence)
	}
	if sceneContext.Weather != models.WeatherClear {
		t.Errorf("weather = %q, want clear", sceneContext.Weather)
	}
	if sceneContext.TimeOfDay != models.TimeDay {
		t.Errorf("time of day = %q, want day", sceneContext.TimeOfDay)
	}
	if sceneContext.RoadType != "urban street with light traffic" {
		t.Errorf("road type = %q", sceneContext.RoadType)
	}
}

func TestParseLineResponseIgnoresBlankLines(t *testing.T) {
	padded := "\nAction: STOP, Confidence: 1.0\n\nWeather: rainy\nTime: night\n\nRoad: intersection\n\n"
	prediction, _, err := ParseLineResponse(padded)
	if err != nil {
		t.Fatalf("ParseLineResponse failed on padded input: %v", err)
	}
	if prediction.Action != models.ActionStop || prediction.Confidence != 1.0 {
		t.Errorf("got %+v", prediction)
	}
}

func TestParseLineResponseFailures(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{
			name: "three lines",
			raw:  "Action: STOP, Confidence: 0.9\nWeather: clear\nTime: day",
		},
		{
			name: "five lines",
			raw:  validLineResponse + "\nExtra: line",
		},
		{
			name: "swapped order",
			raw:  "Weather: clear\nAction: STOP, Confidence: 0.9\nTime: day\nRoad: highway",
		},
		{
			name: "missing confidence",
			raw:  "Action: STOP\nWeather: clear\nTime: day\nRoad: highway",
		},
		{
			name: "empty",
			raw:  "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseLineResponse(tc.raw)
			if err == nil {
				t.Fatal("expected a parse error")
			}

			var parseErr *models.ResponseParsingError
			if !errors.As(err, &parseErr) {
				t.Fatalf("got %T, want *ResponseParsingError", err)
			}
			var malformed *models.MalformedResponseError
			if !errors.As(err, &malformed) {
				t.Fatalf("got %v, want wrapped *MalformedResponseError", err)
			}
			if tc.raw != "" && !strings.Contains(malformed.Raw, strings.Split(tc.raw, "\n")[0]) {
				t.Errorf("raw content not preserved in error: %q", malformed.Raw)
			}
		})
	}
}

func TestParseLineResponseInvalidValues(t *testing.T) {
	t.Run("unknown action", func(t *testing.T) {
		raw := "Action: SWERVE, Confidence: 0.9\nWeather: clear\nTime: day\nRoad: highway"
		_, _, err := ParseLineResponse(raw)
		var enumErr *models.InvalidEnumValueError
		if !errors.As(err, &enumErr) {
			t.Fatalf("got %v, want wrapped *InvalidEnumValueError", err)
		}
		if enumErr.Field != "action" || enumErr.Value != "SWERVE" {
			t.Errorf("unexpected error detail: %+v", enumErr)
		}
	})

	t.Run("lower-case action rejected", func(t *testing.T) {
		raw := "Action: stop, Confidence: 0.9\nWeather: clear\nTime: day\nRoad: highway"
		var enumErr *models.InvalidEnumValueError
		_, _, err := ParseLineResponse(raw)
		if !errors.As(err, &enumErr) {
			t.Fatalf("action matching must be case-sensitive, got %v", err)
		}
	})

	t.Run("confidence above one", func(t *testing.T) {
		raw := "Action: STOP, Confidence: 1.5\nWeather: clear\nTime: day\nRoad: highway"
		var confErr *models.InvalidConfidenceError
		_, _, err := ParseLineResponse(raw)
		if !errors.As(err, &confErr) {
			t.Fatalf("got %v, want wrapped *InvalidConfidenceError", err)
		}
	})

	t.Run("weather case-insensitive", func(t *testing.T) {
		raw := "Action: STOP, Confidence: 0.9\nWeather: Snowy\nTime: Dusk\nRoad: highway"
		_, sceneContext, err := ParseLineResponse(raw)
		if err != nil {
			t.Fatalf("ParseLineResponse failed: %v", err)
		}
		if sceneContext.Weather != models.WeatherSnowy || sceneContext.TimeOfDay != models.TimeDusk {
			t.Errorf("got %+v", sceneContext)
		}
	})
}

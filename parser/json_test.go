package parser

import (
	"errors"
	"testing"

	"github.com/roadvlm/roadvlm-go-sdk/models"
)

func TestParsePredictionJSON(t *testing.T) {
	raw := `{"Action": "CONTINUE", "Confidence": 0.89, "Weather": "clear", "Time": "day", "Road": "highway"}`

	prediction, sceneContext, err := ParsePredictionJSON(raw)
	if err != nil {
		t.Fatalf("ParsePredictionJSON failed: %v", err)
	}
	if prediction.Action != models.ActionContinue || prediction.Confidence != 0.89 {
		t.Errorf("got prediction %+v", prediction)
	}
	if sceneContext.Weather != models.WeatherClear ||
		sceneContext.TimeOfDay != models.TimeDay ||
		sceneContext.RoadType != "highway" {
		t.Errorf("got scene context %+v", sceneContext)
	}
}

func TestParsePredictionJSONFailures(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", "Action: STOP"},
		{"missing action", `{"Confidence": 0.9, "Weather": "clear", "Time": "day", "Road": "highway"}`},
		{"missing road", `{"Action": "STOP", "Confidence": 0.9, "Weather": "clear", "Time": "day"}`},
		{"lower-case keys", `{"action": "STOP", "confidence": 0.9, "weather": "clear", "time": "day", "road": "highway"}`},
		{"empty road", `{"Action": "STOP", "Confidence": 0.9, "Weather": "clear", "Time": "day", "Road": "  "}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParsePredictionJSON(tc.raw)
			var malformed *models.MalformedResponseError
			if !errors.As(err, &malformed) {
				t.Fatalf("got %v, want wrapped *MalformedResponseError", err)
			}
		})
	}

	t.Run("confidence out of range", func(t *testing.T) {
		raw := `{"Action": "STOP", "Confidence": 1.2, "Weather": "clear", "Time": "day", "Road": "highway"}`
		var confErr *models.InvalidConfidenceError
		_, _, err := ParsePredictionJSON(raw)
		if !errors.As(err, &confErr) {
			t.Fatalf("got %v, want wrapped *InvalidConfidenceError", err)
		}
	})

	t.Run("unknown weather", func(t *testing.T) {
		raw := `{"Action": "STOP", "Confidence": 0.9, "Weather": "hail", "Time": "day", "Road": "highway"}`
		var enumErr *models.InvalidEnumValueError
		_, _, err := ParsePredictionJSON(raw)
		if !errors.As(err, &enumErr) {
			t.Fatalf("got %v, want wrapped *InvalidEnumValueError", err)
		}
	})
}

func TestParseSceneJSON(t *testing.T) {
	raw := `{
		"objects": [
			{"type": "vehicle", "bbox": [0.1, 0.1, 0.5, 0.5], "confidence": 0.9}
		],
		"context": {"weather": "clear", "time": "day", "road": "highway"}
	}`

	result, err := ParseSceneJSON(raw)
	if err != nil {
		t.Fatalf("ParseSceneJSON failed: %v", err)
	}

	if len(result.Objects) != 1 {
		t.Fatalf("expected 1 object, got %d", len(result.Objects))
	}
	obj := result.Objects[0]
	if obj.Type != models.ObjectVehicle || obj.Confidence != 0.9 {
		t.Errorf("got object %+v", obj)
	}
	if obj.Bbox.XMin != 100 || obj.Bbox.YMin != 100 || obj.Bbox.XMax != 500 || obj.Bbox.YMax != 500 {
		t.Errorf("millirange conversion wrong: %+v", obj.Bbox)
	}
	if obj.Bbox.Space != models.SpaceMillirange {
		t.Errorf("bbox space = %q, want millirange", obj.Bbox.Space)
	}

	if result.Context.Weather != models.WeatherClear ||
		result.Context.TimeOfDay != models.TimeDay ||
		result.Context.RoadType != "highway" {
		t.Errorf("got context %+v", result.Context)
	}
	if len(result.Dropped) != 0 {
		t.Errorf("unexpected drops: %+v", result.Dropped)
	}
}

func TestParseSceneJSONMissingObjects(t *testing.T) {
	raw := `{"context": {"weather": "cloudy", "time": "dusk", "road": "roundabout"}}`

	result, err := ParseSceneJSON(raw)
	if err != nil {
		t.Fatalf("missing 'objects' must not fail: %v", err)
	}
	if result.Objects == nil || len(result.Objects) != 0 {
		t.Errorf("expected empty object list, got %v", result.Objects)
	}
}

func TestParseSceneJSONMissingContext(t *testing.T) {
	raw := `{"objects": []}`

	_, err := ParseSceneJSON(raw)
	var malformed *models.MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("missing 'context' must fail with MalformedResponseError, got %v", err)
	}
}

func TestParseSceneJSONObjectTolerance(t *testing.T) {
	cases := []struct {
		name   string
		object string
	}{
		{"too narrow", `{"type": "vehicle", "bbox": [0.1, 0.1, 0.105, 0.5], "confidence": 0.9}`},
		{"full image", `{"type": "vehicle", "bbox": [0, 0, 1, 1], "confidence": 0.9}`},
		{"three coordinates", `{"type": "vehicle", "bbox": [0.1, 0.1, 0.5], "confidence": 0.9}`},
		{"coordinate above one", `{"type": "vehicle", "bbox": [0.1, 0.1, 1.5, 0.5], "confidence": 0.9}`},
		{"negative coordinate", `{"type": "vehicle", "bbox": [-0.1, 0.1, 0.5, 0.5], "confidence": 0.9}`},
		{"inverted box", `{"type": "vehicle", "bbox": [0.5, 0.1, 0.1, 0.5], "confidence": 0.9}`},
		{"unknown type", `{"type": "bicycle", "bbox": [0.1, 0.1, 0.5, 0.5], "confidence": 0.9}`},
		{"missing type", `{"bbox": [0.1, 0.1, 0.5, 0.5], "confidence": 0.9}`},
		{"missing confidence", `{"type": "vehicle", "bbox": [0.1, 0.1, 0.5, 0.5]}`},
		{"confidence above one", `{"type": "vehicle", "bbox": [0.1, 0.1, 0.5, 0.5], "confidence": 1.2}`},
		{"confidence as string", `{"type": "vehicle", "bbox": [0.1, 0.1, 0.5, 0.5], "confidence": "0.9"}`},
		{"bbox coordinate as string", `{"type": "vehicle", "bbox": [0.1, "0.1", 0.5, 0.5], "confidence": 0.9}`},
		{"entry not an object", `"just a string"`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := `{"objects": [` + tc.object + `,
				{"type": "pedestrian", "bbox": [0.2, 0.2, 0.4, 0.6], "confidence": 0.8}],
				"context": {"weather": "clear", "time": "day", "road": "highway"}}`

			result, err := ParseSceneJSON(raw)
			if err != nil {
				t.Fatalf("per-object problems must not fail the response: %v", err)
			}
			if len(result.Objects) != 1 || result.Objects[0].Type != models.ObjectPedestrian {
				t.Fatalf("expected only the pedestrian to survive, got %+v", result.Objects)
			}
			if len(result.Dropped) != 1 {
				t.Fatalf("expected 1 drop record, got %+v", result.Dropped)
			}
			if result.Dropped[0].Index != 0 || result.Dropped[0].Reason == "" {
				t.Errorf("drop diagnostics incomplete: %+v", result.Dropped[0])
			}
		})
	}
}

func TestParseSceneJSONTrafficLightState(t *testing.T) {
	raw := `{
		"objects": [
			{"type": "traffic_light", "bbox": [0.4, 0.1, 0.45, 0.2], "confidence": 0.95, "state": "red"}
		],
		"context": {"weather": "clear", "time": "night", "road": "intersection"}
	}`

	result, err := ParseSceneJSON(raw)
	if err != nil {
		t.Fatalf("ParseSceneJSON failed: %v", err)
	}
	if len(result.Objects) != 1 {
		t.Fatalf("expected 1 object, got %d", len(result.Objects))
	}
	if result.Objects[0].State != models.LightRed {
		t.Errorf("state = %q, want red", result.Objects[0].State)
	}
}

func TestParseSceneJSONBadContextValue(t *testing.T) {
	raw := `{"objects": [], "context": {"weather": "clear", "time": "noon", "road": "highway"}}`

	_, err := ParseSceneJSON(raw)
	var enumErr *models.InvalidEnumValueError
	if !errors.As(err, &enumErr) {
		t.Fatalf("got %v, want wrapped *InvalidEnumValueError", err)
	}
	if enumErr.Field != "time" {
		t.Errorf("error field = %q, want time", enumErr.Field)
	}
}

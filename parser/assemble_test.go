package parser

import (
	"errors"
	"reflect"
	"testing"

	"github.com/roadvlm/roadvlm-go-sdk/models"
)

func TestAssemble(t *testing.T) {
	sceneContext := &models.SceneContext{
		Weather:   models.WeatherClear,
		TimeOfDay: models.TimeDay,
		RoadType:  "highway",
	}
	prediction := &models.Prediction{Action: models.ActionContinue, Confidence: 0.9}

	output, err := Assemble(AssembleInput{
		Prediction:     prediction,
		SceneContext:   sceneContext,
		ImageID:        "frame-0042",
		ProcessingTime: 1.25,
	})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	if output.Prediction != prediction {
		t.Error("prediction not carried through")
	}
	if !reflect.DeepEqual(output.SceneContext, *sceneContext) {
		t.Errorf("scene context = %+v", output.SceneContext)
	}
	if output.ImageID != "frame-0042" || output.ProcessingTime != 1.25 {
		t.Errorf("identifiers not carried: %+v", output)
	}
	if output.Objects == nil || len(output.Objects) != 0 {
		t.Errorf("nil object list should become an empty list, got %v", output.Objects)
	}
	if output.Direction != nil {
		t.Errorf("unexpected direction: %+v", output.Direction)
	}
}

func TestAssembleRequiresSceneContext(t *testing.T) {
	_, err := Assemble(AssembleInput{
		Prediction: &models.Prediction{Action: models.ActionStop, Confidence: 1},
	})
	var incomplete *models.IncompleteOutputError
	if !errors.As(err, &incomplete) {
		t.Fatalf("got %v, want *IncompleteOutputError", err)
	}
	if incomplete.Missing != "scene_context" {
		t.Errorf("missing field = %q, want scene_context", incomplete.Missing)
	}
}

func TestAssembleRejectsNegativeProcessingTime(t *testing.T) {
	_, err := Assemble(AssembleInput{
		SceneContext:   &models.SceneContext{Weather: models.WeatherClear, TimeOfDay: models.TimeDay, RoadType: "highway"},
		ProcessingTime: -0.5,
	})
	if err == nil {
		t.Fatal("negative processing time must be rejected")
	}
	if models.IsOutputError(err) {
		t.Errorf("caller mistakes must not look like model-output errors: %v", err)
	}
}

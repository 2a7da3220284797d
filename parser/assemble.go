package parser

import (
	"fmt"

	"github.com/roadvlm/roadvlm-go-sdk/models"
)

// AssembleInput collects everything the chosen strategy produced for one
// analyzed image, plus caller-supplied identifiers and timings.
type AssembleInput struct {
	Prediction     *models.Prediction
	Objects        []models.DetectedObject
	SceneContext   *models.SceneContext
	Direction      *models.Direction
	ImageID        string
	ProcessingTime float64
}

// Assemble builds the aggregate AnalysisOutput. This is pure
// construction: the only output check is that the required scene context
// is present, which fails with an IncompleteOutputError. A negative
// processing time is a caller mistake, not a model-output problem, and
// is reported as a plain error.
func Assemble(in AssembleInput) (*models.AnalysisOutput, error) {
	if in.SceneContext == nil {
		return nil, &models.IncompleteOutputError{Missing: "scene_context"}
	}
	if in.ProcessingTime < 0 {
		return nil, fmt.Errorf("processing time must be non-negative, got %v", in.ProcessingTime)
	}

	objects := in.Objects
	if objects == nil {
		objects = []models.DetectedObject{}
	}

	return &models.AnalysisOutput{
		Prediction:     in.Prediction,
		Objects:        objects,
		SceneContext:   *in.SceneContext,
		Direction:      in.Direction,
		ImageID:        in.ImageID,
		ProcessingTime: in.ProcessingTime,
	}, nil
}

package parser

import (
	"fmt"

	"github.com/roadvlm/roadvlm-go-sdk/models"
)

// RescaleObjects converts object bounding boxes from the internal
// millirange to the pixel space of a (width x height) target image:
//
//	pixel = millirange * dimension / 1000
//
// truncated to an integer. Each object list is meant to be rescaled at
// most once; an object already in pixel space fails rather than silently
// producing wrong geometry. The input slice is not modified.
func RescaleObjects(objects []models.DetectedObject, width, height int) ([]models.DetectedObject, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}

	rescaled := make([]models.DetectedObject, len(objects))
	for i, obj := range objects {
		if obj.Bbox.Space == models.SpacePixel {
			return nil, fmt.Errorf("object %d already rescaled to pixel space", i)
		}

		bbox, err := models.NewBoundingBox(
			obj.Bbox.XMin*width/milliScale,
			obj.Bbox.YMin*height/milliScale,
			obj.Bbox.XMax*width/milliScale,
			obj.Bbox.YMax*height/milliScale,
			models.SpacePixel,
		)
		if err != nil {
			return nil, fmt.Errorf("rescaling object %d to %dx%d: %w", i, width, height, err)
		}

		rescaled[i] = obj
		rescaled[i].Bbox = bbox
	}

	return rescaled, nil
}

package parser

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/roadvlm/roadvlm-go-sdk/models"
)

// Loose search patterns for the multi-call strategy. Unlike the strict
// line format, fields may appear anywhere inside surrounding prose.
var (
	actionFieldPattern     = regexp.MustCompile(`Action:\s*(\w+)`)
	confidenceFieldPattern = regexp.MustCompile(`Confidence:\s*(\S+)`)
	weatherFieldPattern    = regexp.MustCompile(`Weather:\s*(\w+)`)
	timeFieldPattern       = regexp.MustCompile(`Time:\s*(\w+)`)
	roadFieldPattern       = regexp.MustCompile(`Road:\s*([^\n]+)`)
	angleFieldPattern      = regexp.MustCompile(`Angle:\s*(-?\d+(?:\.\d+)?)`)
)

// MultiCallResponses carries the three free-text responses of the
// multi-call prompt contract, one per sub-query.
type MultiCallResponses struct {
	Action    string
	Context   string
	Direction string
}

// ParseMultiCall parses all three sub-responses. Each sub-response is
// scanned independently and fails independently, so an error names the
// sub-query that could not be understood.
func ParseMultiCall(responses MultiCallResponses) (*models.Prediction, *models.SceneContext, *models.Direction, error) {
	prediction, err := ParseActionResponse(responses.Action)
	if err != nil {
		return nil, nil, nil, err
	}

	sceneContext, err := ParseContextResponse(responses.Context)
	if err != nil {
		return nil, nil, nil, err
	}

	direction, err := ParseDirectionResponse(responses.Direction)
	if err != nil {
		return nil, nil, nil, err
	}

	return prediction, sceneContext, direction, nil
}

// ParseActionResponse extracts a Prediction from the action sub-response.
func ParseActionResponse(raw string) (*models.Prediction, error) {
	content := strings.TrimSpace(raw)

	actionMatch := actionFieldPattern.FindStringSubmatch(content)
	confidenceMatch := confidenceFieldPattern.FindStringSubmatch(content)
	if actionMatch == nil || confidenceMatch == nil {
		return nil, parseFailure(content, &models.MalformedResponseError{
			Expected: "'Action:' and 'Confidence:' fields in the action response",
			Got:      missingFields(map[string]bool{"Action": actionMatch != nil, "Confidence": confidenceMatch != nil}),
			Raw:      content,
		})
	}

	action, err := models.ParseActionType(actionMatch[1])
	if err != nil {
		return nil, parseFailure(content, err)
	}
	confidence, err := models.ParseConfidence(confidenceMatch[1])
	if err != nil {
		return nil, parseFailure(content, err)
	}

	return &models.Prediction{Action: action, Confidence: confidence}, nil
}

// ParseContextResponse extracts a SceneContext from the context
// sub-response.
func ParseContextResponse(raw string) (*models.SceneContext, error) {
	content := strings.TrimSpace(raw)

	weatherMatch := weatherFieldPattern.FindStringSubmatch(content)
	timeMatch := timeFieldPattern.FindStringSubmatch(content)
	roadMatch := roadFieldPattern.FindStringSubmatch(content)
	if weatherMatch == nil || timeMatch == nil || roadMatch == nil {
		return nil, parseFailure(content, &models.MalformedResponseError{
			Expected: "'Weather:', 'Time:' and 'Road:' fields in the context response",
			Got: missingFields(map[string]bool{
				"Weather": weatherMatch != nil,
				"Time":    timeMatch != nil,
				"Road":    roadMatch != nil,
			}),
			Raw: content,
		})
	}

	weather, err := models.ParseWeatherCondition(weatherMatch[1])
	if err != nil {
		return nil, parseFailure(content, err)
	}
	timeOfDay, err := models.ParseTimeOfDay(timeMatch[1])
	if err != nil {
		return nil, parseFailure(content, err)
	}

	return &models.SceneContext{
		Weather:   weather,
		TimeOfDay: timeOfDay,
		RoadType:  strings.TrimSpace(roadMatch[1]),
	}, nil
}

// ParseDirectionResponse extracts a Direction from the direction
// sub-response. The angle may be any integer or float; it is wrapped
// modulo 360 into [0, 360).
func ParseDirectionResponse(raw string) (*models.Direction, error) {
	content := strings.TrimSpace(raw)

	angleMatch := angleFieldPattern.FindStringSubmatch(content)
	actionMatch := actionFieldPattern.FindStringSubmatch(content)
	confidenceMatch := confidenceFieldPattern.FindStringSubmatch(content)
	if angleMatch == nil || actionMatch == nil || confidenceMatch == nil {
		return nil, parseFailure(content, &models.MalformedResponseError{
			Expected: "'Angle:', 'Action:' and 'Confidence:' fields in the direction response",
			Got: missingFields(map[string]bool{
				"Angle":      angleMatch != nil,
				"Action":     actionMatch != nil,
				"Confidence": confidenceMatch != nil,
			}),
			Raw: content,
		})
	}

	angle, err := strconv.ParseFloat(angleMatch[1], 64)
	if err != nil {
		return nil, parseFailure(content, &models.MalformedResponseError{
			Expected: "numeric angle in degrees",
			Got:      fmt.Sprintf("%q", angleMatch[1]),
			Raw:      content,
		})
	}

	action, err := models.ParseActionType(actionMatch[1])
	if err != nil {
		return nil, parseFailure(content, err)
	}
	confidence, err := models.ParseConfidence(confidenceMatch[1])
	if err != nil {
		return nil, parseFailure(content, err)
	}

	return &models.Direction{
		Angle:      normalizeAngle(angle),
		Type:       action,
		Confidence: confidence,
	}, nil
}

// normalizeAngle wraps an angle in degrees into [0, 360).
func normalizeAngle(angle float64) float64 {
	wrapped := math.Mod(angle, 360)
	if wrapped < 0 {
		wrapped += 360
	}
	return wrapped
}

func missingFields(present map[string]bool) string {
	var missing []string
	for _, field := range []string{"Action", "Confidence", "Weather", "Time", "Road", "Angle"} {
		if ok, tracked := present[field]; tracked && !ok {
			missing = append(missing, field)
		}
	}
	return "missing " + strings.Join(missing, ", ")
}

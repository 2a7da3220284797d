// Package parser converts raw vision-model responses into validated
// domain records. Three strategies are supported — the strict 4-line
// format, the single-JSON formats, and the multi-call free-text format —
// and the caller picks one according to the prompt contract it used.
// Strategies are never auto-detected from content.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roadvlm/roadvlm-go-sdk/models"
)

var (
	actionLinePattern  = regexp.MustCompile(`^Action:\s*(\w+),\s*Confidence:\s*(\S+)$`)
	weatherLinePattern = regexp.MustCompile(`^Weather:\s*(\w+)$`)
	timeLinePattern    = regexp.MustCompile(`^Time:\s*(\w+)$`)
	roadLinePattern    = regexp.MustCompile(`^Road:\s*(.+?)$`)
)

// ParseLineResponse parses the strict 4-line response format:
//
//	Action: <TOKEN>, Confidence: <NUM>
//	Weather: <TOKEN>
//	Time: <TOKEN>
//	Road: <free text>
//
// Empty lines are ignored; any other deviation from exactly four
// correctly ordered lines fails. The object list is not produced by this
// strategy.
func ParseLineResponse(raw string) (*models.Prediction, *models.SceneContext, error) {
	content := strings.TrimSpace(raw)

	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	if len(lines) != 4 {
		return nil, nil, parseFailure(content, &models.MalformedResponseError{
			Expected: "4 lines of output",
			Got:      fmt.Sprintf("%d lines", len(lines)),
			Raw:      content,
		})
	}

	actionMatch := actionLinePattern.FindStringSubmatch(lines[0])
	if actionMatch == nil {
		return nil, nil, parseFailure(content, &models.MalformedResponseError{
			Expected: "'Action: <TOKEN>, Confidence: <NUM>'",
			Got:      fmt.Sprintf("%q", lines[0]),
			Raw:      content,
		})
	}

	weatherMatch := weatherLinePattern.FindStringSubmatch(lines[1])
	if weatherMatch == nil {
		return nil, nil, parseFailure(content, &models.MalformedResponseError{
			Expected: "'Weather: <TOKEN>'",
			Got:      fmt.Sprintf("%q", lines[1]),
			Raw:      content,
		})
	}

	timeMatch := timeLinePattern.FindStringSubmatch(lines[2])
	if timeMatch == nil {
		return nil, nil, parseFailure(content, &models.MalformedResponseError{
			Expected: "'Time: <TOKEN>'",
			Got:      fmt.Sprintf("%q", lines[2]),
			Raw:      content,
		})
	}

	roadMatch := roadLinePattern.FindStringSubmatch(lines[3])
	if roadMatch == nil {
		return nil, nil, parseFailure(content, &models.MalformedResponseError{
			Expected: "'Road: <free text>'",
			Got:      fmt.Sprintf("%q", lines[3]),
			Raw:      content,
		})
	}

	action, err := models.ParseActionType(actionMatch[1])
	if err != nil {
		return nil, nil, parseFailure(content, err)
	}

	confidence, err := models.ParseConfidence(actionMatch[2])
	if err != nil {
		return nil, nil, parseFailure(content, err)
	}

	weather, err := models.ParseWeatherCondition(weatherMatch[1])
	if err != nil {
		return nil, nil, parseFailure(content, err)
	}

	timeOfDay, err := models.ParseTimeOfDay(timeMatch[1])
	if err != nil {
		return nil, nil, parseFailure(content, err)
	}

	prediction := &models.Prediction{
		Action:     action,
		Confidence: confidence,
	}
	sceneContext := &models.SceneContext{
		Weather:   weather,
		TimeOfDay: timeOfDay,
		RoadType:  strings.TrimSpace(roadMatch[1]),
	}

	return prediction, sceneContext, nil
}

// parseFailure wraps a taxonomy error so callers always receive a
// ResponseParsingError carrying the original raw content.
func parseFailure(raw string, err error) error {
	return &models.ResponseParsingError{Raw: raw, Err: err}
}

package utils

import (
	"fmt"
	"strings"

	"github.com/roadvlm/roadvlm-go-sdk/models"
)

// Prompt builders for the three response contracts the parser package
// understands. The prompt and the parsing strategy always travel
// together; sending the scene prompt and parsing the reply with the line
// strategy is a caller bug.

func actionValues() string {
	return strings.Join(models.ActionTypeValues(), ", ")
}

func weatherValues() string {
	return strings.Join(models.WeatherConditionValues(), ", ")
}

func timeValues() string {
	return strings.Join(models.TimeOfDayValues(), ", ")
}

// PredictionPrompt asks for the single-shot prediction JSON dialect:
// {"Action", "Confidence", "Weather", "Time", "Road"}.
func PredictionPrompt() string {
	return fmt.Sprintf(`Analyze this driving scene and respond using EXACTLY the following format with EXACTLY these allowed values. Do not use any other values.

Allowed ACTION values: %s
Allowed WEATHER values: %s
Allowed TIME values: %s

Required format (in JSON):
{
  "Action": "[EXACT ACTION VALUE]",
  "Confidence": [NUMBER 0-1],
  "Weather": "[EXACT WEATHER VALUE]",
  "Time": "[EXACT TIME VALUE]",
  "Road": "[BRIEF DESCRIPTION]"
}`, actionValues(), weatherValues(), timeValues())
}

// LinePrompt asks for the strict 4-line format.
func LinePrompt() string {
	return fmt.Sprintf(`Analyze this driving scene and respond with EXACTLY four lines in this format, nothing else:

Action: [ACTION], Confidence: [NUMBER 0-1]
Weather: [WEATHER]
Time: [TIME]
Road: [BRIEF DESCRIPTION]

Allowed ACTION values: %s
Allowed WEATHER values: %s
Allowed TIME values: %s`, actionValues(), weatherValues(), timeValues())
}

// ScenePrompt asks for the scene-analysis JSON dialect with per-object
// bounding boxes in normalized [0,1] coordinates.
func ScenePrompt() string {
	return `Analyze this driving scene image and respond with ONLY a JSON object in exactly this format.

Focus on key elements:
1. Individual Vehicles:
   - Identify EACH vehicle separately with its own bounding box
   - Do not group nearby vehicles together
   - Include cars, trucks, buses separately

2. Traffic Controls:
   - Each traffic light should have its own separate bounding box
   - Each traffic sign should be detected individually
   - Do not combine multiple traffic lights or signs

3. Road Environment:
   - Identify the road conditions
   - Note weather conditions
   - Describe time of day

Required JSON Format:
{
    "objects": [
        {
            "type": "vehicle|traffic_light|traffic_sign",
            "bbox": [x1, y1, x2, y2],
            "confidence": 0.9
        }
    ],
    "context": {
        "weather": "clear|cloudy|rainy|foggy|snowy",
        "time": "day|night|dawn|dusk",
        "road": "brief road description"
    }
}

Important Rules:
1. Each object MUST have its own separate bounding box
2. Be extremely precise with bounding box coordinates
3. Only include actually visible objects
4. Use normalized coordinates (0-1) for bbox
5. Coordinates must be exact - no rounding
6. Each detection should have its own confidence score`
}

// Multi-call prompts, one per sub-query. Replies are free text scanned
// with loose patterns, so the model is allowed to explain itself around
// the required fields.

func ActionSubPrompt() string {
	return fmt.Sprintf(`What should the vehicle do in this driving scene?
Include a line 'Action: [ACTION], Confidence: [NUMBER 0-1]' in your answer.
Allowed ACTION values: %s`, actionValues())
}

func ContextSubPrompt() string {
	return fmt.Sprintf(`Describe the driving conditions in this scene.
Include lines 'Weather: [WEATHER]', 'Time: [TIME]' and 'Road: [BRIEF DESCRIPTION]' in your answer.
Allowed WEATHER values: %s
Allowed TIME values: %s`, weatherValues(), timeValues())
}

func DirectionSubPrompt() string {
	return fmt.Sprintf(`Which direction should the vehicle steer in this scene?
Include lines 'Angle: [DEGREES]' and 'Action: [ACTION], Confidence: [NUMBER 0-1]' in your answer.
Allowed ACTION values: %s`, actionValues())
}

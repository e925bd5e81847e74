package enhance

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseDocumentJSON parses the JSON response returned by a model provider
func parseDocumentJSON(text string) (*DocumentData, error) {
	text = strings.TrimSpace(text)

	// Remove markdown code blocks if present
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var data DocumentData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	data.Title = strings.TrimSpace(data.Title)

	// Models occasionally report quality as a percentage or out of range
	if data.QualityScore > 1 && data.QualityScore <= 100 {
		data.QualityScore = data.QualityScore / 100
	}
	if data.QualityScore < 0 {
		data.QualityScore = 0
	}
	if data.QualityScore > 1 {
		data.QualityScore = 1
	}

	return &data, nil
}

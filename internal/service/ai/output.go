package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type responsePayload struct {
	ChatbotResponse string `json:"chatbotResponse"`
	IsTriggering    *bool  `json:"isTriggering"`
}

type recommendationPayload struct {
	Recommendations []string `json:"recommendations"`
}

const responseOutputSchema = `{
	"type": "object",
	"required": ["chatbotResponse"],
	"properties": {
		"chatbotResponse": {"type": "string", "minLength": 1},
		"isTriggering": {"type": "boolean"}
	}
}`

const recommendationOutputSchema = `{
	"type": "object",
	"required": ["recommendations"],
	"properties": {
		"recommendations": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "string"}
		}
	}
}`

func compileOutputSchemas() (outputSchemas, error) {
	response, err := jsonschema.CompileString("response-output.json", responseOutputSchema)
	if err != nil {
		return outputSchemas{}, fmt.Errorf("compile response schema: %w", err)
	}
	recommendation, err := jsonschema.CompileString("recommendation-output.json", recommendationOutputSchema)
	if err != nil {
		return outputSchemas{}, fmt.Errorf("compile recommendation schema: %w", err)
	}
	return outputSchemas{response: response, recommendation: recommendation}, nil
}

// decodeObject locates the outermost JSON object in content, validates it
// against sch and decodes it into dst. It reports false when content holds
// no JSON object at all.
func decodeObject(content string, sch *jsonschema.Schema, dst any) (bool, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return false, nil
	}
	raw := []byte(trimmed[start : end+1])

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return true, fmt.Errorf("malformed json output: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return true, fmt.Errorf("model output rejected: %w", err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode model output: %w", err)
	}
	return true, nil
}

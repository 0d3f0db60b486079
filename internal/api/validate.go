package api

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// lessonPayloadSchema is the structural contract a session payload must
// satisfy before the store is allowed to adopt it.
const lessonPayloadSchema = `{
	"type": "object",
	"required": ["id", "status", "questions", "timeRemaining", "correctAnswersCount"],
	"properties": {
		"id": {"type": "integer"},
		"status": {"enum": ["started", "in_progress", "finished"]},
		"correctAnswersCount": {"type": "integer", "minimum": 0},
		"timeRemaining": {"type": "integer"},
		"questions": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["id", "title", "answers"],
				"properties": {
					"id": {"type": "integer"},
					"title": {"type": "string", "minLength": 1},
					"answers": {
						"type": "array",
						"minItems": 1,
						"items": {
							"type": "object",
							"required": ["id", "title"],
							"properties": {
								"id": {"type": "integer"},
								"title": {"type": "string"}
							}
						}
					}
				}
			}
		}
	}
}`

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

// validateLessonPayload checks raw against the session payload schema.
// Returns *ErrMalformedPayload on any mismatch.
func validateLessonPayload(raw json.RawMessage) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &ErrMalformedPayload{Reason: "invalid JSON", Err: err}
	}

	compiled, err := sessionSchema()
	if err != nil {
		return fmt.Errorf("compile payload schema: %w", err)
	}

	if err := compiled.Validate(parsed); err != nil {
		return &ErrMalformedPayload{Reason: "session payload failed schema validation", Err: err}
	}
	return nil
}

func sessionSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		var def any
		if err := json.Unmarshal([]byte(lessonPayloadSchema), &def); err != nil {
			compileErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("schema://lesson-payload.json", def); err != nil {
			compileErr = err
			return
		}
		compiledSchema, compileErr = c.Compile("schema://lesson-payload.json")
	})
	return compiledSchema, compileErr
}

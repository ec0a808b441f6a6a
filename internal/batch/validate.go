package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// DefaultMaxAnswerLength is the exclusive upper bound on an answer's length
// in characters.
const DefaultMaxAnswerLength = 5000

// ErrLengthMismatch means the answers file does not have one record per
// question.
var ErrLengthMismatch = errors.New("answer count does not match question count")

// ValidationError lists every record that broke the answer contract.
type ValidationError struct {
	Errors []FieldError
}

// FieldError is a single violation at a JSON path.
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// answerSchema builds the JSON Schema for an answers file.
func answerSchema(maxLength int) string {
	return fmt.Sprintf(`{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "array",
	"items": {
		"type": "object",
		"required": ["output"],
		"properties": {
			"output": {"type": "string", "maxLength": %d}
		}
	}
}`, maxLength-1)
}

// Validate checks raw answers JSON against the contract: one record per
// question, each with a string "output" shorter than maxLength characters.
func Validate(questionCount int, answersJSON []byte, maxLength int) error {
	if maxLength <= 0 {
		maxLength = DefaultMaxAnswerLength
	}

	var records []json.RawMessage
	if err := json.Unmarshal(answersJSON, &records); err != nil {
		return fmt.Errorf("answers must be a JSON list: %w", err)
	}
	if len(records) != questionCount {
		return fmt.Errorf("%w: %d questions vs %d answers", ErrLengthMismatch, questionCount, len(records))
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(answerSchema(maxLength)),
		gojsonschema.NewBytesLoader(answersJSON),
	)
	if err != nil {
		return fmt.Errorf("answer schema validation could not run: %w", err)
	}
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}

// ValidateFiles re-reads a questions file and an answers file and checks
// the answers against the contract.
func ValidateFiles(questionsPath, answersPath string, maxLength int) error {
	questions, err := LoadQuestions(questionsPath)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(answersPath)
	if err != nil {
		return fmt.Errorf("failed to read answers file %s: %w", answersPath, err)
	}
	return Validate(len(questions), data, maxLength)
}

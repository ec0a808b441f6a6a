// Package batch reads question files, writes answer files and checks the
// answer file contract.
package batch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"qa-ensemble/internal/ensemble"
)

// QuestionRecord is one entry of a questions file. Only Input is read.
type QuestionRecord struct {
	Input string `json:"input"`
}

// rawQuestion tells a missing "input" key apart from an empty one.
type rawQuestion struct {
	Input *string `json:"input"`
}

// AnswerRecord is one entry of an answers file.
type AnswerRecord struct {
	Output string `json:"output"`
}

// LoadQuestions reads a JSON array of question records.
func LoadQuestions(path string) ([]QuestionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read questions file %s: %w", path, err)
	}
	return ParseQuestions(data)
}

// ParseQuestions decodes a JSON array of question records. Every record must
// carry an "input" string; an empty one is kept and answered like any other.
func ParseQuestions(data []byte) ([]QuestionRecord, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse questions JSON: %w", err)
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("questions file must contain a list of question objects")
	}
	var decoded []rawQuestion
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("failed to parse questions JSON: %w", err)
	}
	records := make([]QuestionRecord, len(decoded))
	for i, q := range decoded {
		if q.Input == nil {
			return nil, fmt.Errorf("question %d: missing \"input\" field", i)
		}
		records[i] = QuestionRecord{Input: *q.Input}
	}
	return records, nil
}

// Questions extracts the question texts in order.
func Questions(records []QuestionRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Input
	}
	return out
}

// Answers converts pipeline results into answer records, in order.
func Answers(results []ensemble.Result) []AnswerRecord {
	out := make([]AnswerRecord, len(results))
	for i, r := range results {
		out[i] = AnswerRecord{Output: r.Final}
	}
	return out
}

// WriteAnswers writes answer records as indented JSON without escaping
// non-ASCII or HTML characters.
func WriteAnswers(path string, answers []AnswerRecord) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if answers == nil {
		answers = []AnswerRecord{}
	}
	if err := enc.Encode(answers); err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write answers file %s: %w", path, err)
	}
	return nil
}

package ensemble

import (
	"context"
	"strings"

	"qa-ensemble/internal/llm"
)

// funcClient adapts a function to llm.Client.
type funcClient func(ctx context.Context, req llm.Request) (string, error)

func (f funcClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	return f(ctx, req)
}

func isRewrite(req llm.Request) bool {
	return strings.Contains(req.Prompt, "Rewrite this question clearly:")
}

func isAnswer(req llm.Request) bool {
	return strings.HasPrefix(req.Prompt, AnswerInstruction)
}

func testDirectives() []Directive {
	return []Directive{
		{Name: "one", Instruction: "Style one."},
		{Name: "two", Instruction: "Style two."},
		{Name: "three", Instruction: "Style three."},
	}
}

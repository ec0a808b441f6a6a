package llm

import "context"

// StubClient answers every request with a fixed reply. It backs
// LLM_PROVIDER=stub for local runs without a generation service.
type StubClient struct {
	Reply string
}

func NewStubClient(reply string) *StubClient {
	return &StubClient{Reply: reply}
}

func (s *StubClient) Complete(ctx context.Context, _ Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", TransportFailure(err)
	}
	return s.Reply, nil
}

package devmock

import "context"

// QuestionSource supplies an ordered question list for a request. The local
// library and the remote question maker both implement it.
type QuestionSource interface {
	Questions(ctx context.Context, req GenerationRequest) ([]Question, error)
}

// SourceFunc adapts a plain function to QuestionSource
type SourceFunc func(ctx context.Context, req GenerationRequest) ([]Question, error)

func (f SourceFunc) Questions(ctx context.Context, req GenerationRequest) ([]Question, error) {
	return f(ctx, req)
}

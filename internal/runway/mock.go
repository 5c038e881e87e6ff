package runway

import (
	"context"

	"github.com/google/uuid"
)

// MockGenerator substitutes a deterministic stub for the external
// provider: every request succeeds immediately with an empty placeholder
// asset and no remote job lifecycle. It enables full pipeline runs
// without network access or provider charges.
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (m *MockGenerator) SubmitAndAwait(ctx context.Context, req Request) (*Result, error) {
	return &Result{
		JobID: "mock-" + uuid.New().String(),
		Data:  []byte{},
	}, nil
}

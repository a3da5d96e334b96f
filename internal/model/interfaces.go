package model

import (
	"context"

	"github.com/harunnryd/polaris/internal/model/contract"
)

// Provider is a chat completion backend. Implementations must return an
// *errors.UpstreamError (wrapped) when the remote API answers non-2xx.
type Provider interface {
	Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
	Name() string
}

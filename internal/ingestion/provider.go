package ingestion

import (
	"context"

	"flighttrack/internal/domain/update"
)

// RawPayload is one untyped update as delivered by an external feed.
// Nothing outside a provider's Normalize may interpret it.
type RawPayload map[string]any

// Provider is the pluggable boundary between the pipeline and one external
// update source.
type Provider interface {
	Name() string
	FetchUpdates(ctx context.Context) ([]RawPayload, error)
	Normalize(payload RawPayload) (*update.Packet, error)
}

package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"flighttrack/internal/domain/flight"
	"flighttrack/internal/domain/update"
)

var (
	updatesPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingestion_updates_persisted_total",
		Help: "The total number of flight updates persisted",
	})
	fetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingestion_fetch_errors_total",
		Help: "The total number of failed provider fetches",
	})
	processErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingestion_process_errors_total",
		Help: "The total number of payloads that failed normalize or persist",
	})
)

// FlightResolver resolves a flight number to a stored flight, best effort.
type FlightResolver interface {
	GetByNumber(ctx context.Context, number string) (*flight.Flight, error)
}

// Publisher fans persisted updates out to downstream consumers.
type Publisher interface {
	SendMessage(ctx context.Context, key, value []byte) error
}

// Pipeline reconciles one round of provider polling into persisted updates.
// Failures are isolated per provider and per payload: the pass fails only
// when nothing at all succeeded.
type Pipeline struct {
	providers    []Provider
	updates      update.Repository
	flights      FlightResolver
	publisher    Publisher
	fetchTimeout time.Duration
}

func NewPipeline(providers []Provider, updates update.Repository, flights FlightResolver, publisher Publisher, fetchTimeout time.Duration) *Pipeline {
	return &Pipeline{
		providers:    providers,
		updates:      updates,
		flights:      flights,
		publisher:    publisher,
		fetchTimeout: fetchTimeout,
	}
}

// Restricted returns a pipeline limited to the providers matching name.
// The scheduler uses it to run a single schedule's provider.
func (p *Pipeline) Restricted(name string) *Pipeline {
	var matched []Provider
	for _, provider := range p.providers {
		if provider.Name() == name {
			matched = append(matched, provider)
		}
	}
	return &Pipeline{
		providers:    matched,
		updates:      p.updates,
		flights:      p.flights,
		publisher:    p.publisher,
		fetchTimeout: p.fetchTimeout,
	}
}

// IngestAll polls every provider once and persists whatever normalizes
// cleanly. It returns the persisted updates; it fails only when the pass
// produced zero updates and at least one error occurred.
func (p *Pipeline) IngestAll(ctx context.Context) ([]*update.FlightUpdate, error) {
	var results []*update.FlightUpdate
	var errs []error

	for _, provider := range p.providers {
		payloads, err := p.fetch(ctx, provider)
		if err != nil {
			fetchErr := &FetchError{Provider: provider.Name(), Err: err}
			slog.Error("failed to fetch updates", "provider", provider.Name(), "error", err)
			fetchErrors.Inc()
			errs = append(errs, fetchErr)
			continue
		}

		for _, payload := range payloads {
			row, err := p.process(ctx, provider, payload)
			if err != nil {
				procErr := &ProviderError{Provider: provider.Name(), Err: err}
				slog.Error("failed to process payload", "provider", provider.Name(), "error", err)
				processErrors.Inc()
				errs = append(errs, procErr)
				continue
			}
			results = append(results, row)
			updatesPersisted.Inc()
		}
	}

	if len(results) == 0 && len(errs) > 0 {
		return nil, &AllProvidersFailedError{Errors: errs}
	}
	return results, nil
}

// fetch bounds one provider poll with the configured timeout so a stuck
// feed cannot stall the whole pass.
func (p *Pipeline) fetch(ctx context.Context, provider Provider) ([]RawPayload, error) {
	if p.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.fetchTimeout)
		defer cancel()
	}
	return provider.FetchUpdates(ctx)
}

func (p *Pipeline) process(ctx context.Context, provider Provider, payload RawPayload) (*update.FlightUpdate, error) {
	packet, err := provider.Normalize(payload)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	return p.persist(ctx, packet)
}

func (p *Pipeline) persist(ctx context.Context, packet *update.Packet) (*update.FlightUpdate, error) {
	flightID := packet.FlightID
	if flightID == nil && packet.FlightNumber != "" {
		f, err := p.flights.GetByNumber(ctx, packet.FlightNumber)
		switch {
		case err == nil:
			flightID = &f.ID
		case errors.Is(err, flight.ErrNotFound):
			// Unresolved is not an error; the update is kept without a
			// flight reference.
		default:
			return nil, fmt.Errorf("resolve flight %q: %w", packet.FlightNumber, err)
		}
	}

	raw := packet.RawPayload
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	row := &update.FlightUpdate{
		ID:           uuid.New(),
		FlightID:     flightID,
		FlightNumber: packet.FlightNumber,
		AirportCode:  packet.AirportCode,
		Provider:     packet.Provider,
		Type:         packet.Type,
		Status:       packet.Status,
		DepartureAt:  packet.DepartureAt,
		ArrivalAt:    packet.ArrivalAt,
		Gate:         packet.Gate,
		RawPayload:   raw,
		Processed:    false,
		CreatedAt:    time.Now().UTC(),
	}

	if err := p.updates.Save(ctx, row); err != nil {
		return nil, fmt.Errorf("save update: %w", err)
	}

	p.publish(ctx, row)
	return row, nil
}

// publish fans the persisted update out, best effort. A publish failure
// never fails ingestion.
func (p *Pipeline) publish(ctx context.Context, row *update.FlightUpdate) {
	if p.publisher == nil {
		return
	}

	value, err := json.Marshal(row)
	if err != nil {
		slog.Error("failed to marshal update for publish", "update_id", row.ID, "error", err)
		return
	}

	key := []byte(row.FlightNumber)
	if len(key) == 0 {
		key = []byte(row.ID.String())
	}

	sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.publisher.SendMessage(sendCtx, key, value); err != nil {
		slog.Error("failed to publish update", "update_id", row.ID, "error", err)
	}
}

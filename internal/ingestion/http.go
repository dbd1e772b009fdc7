package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"flighttrack/internal/domain/update"
)

// HTTPProvider polls a remote JSON feed. The feed may answer with either a
// single update object or an array of them.
type HTTPProvider struct {
	name   string
	url    string
	client *http.Client
}

func NewHTTPProvider(name, url string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (h *HTTPProvider) Name() string { return h.name }

func (h *HTTPProvider) FetchUpdates(ctx context.Context) ([]RawPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", h.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", h.url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var list []RawPayload
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var single RawPayload
	if err := json.Unmarshal(body, &single); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return []RawPayload{single}, nil
}

func (h *HTTPProvider) Normalize(payload RawPayload) (*update.Packet, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("serialize raw payload: %w", err)
	}

	flightNumber := stringField(payload, "flight")
	if flightNumber == "" {
		flightNumber = stringField(payload, "flight_number")
	}

	packet := &update.Packet{
		Provider:     h.name,
		FlightNumber: flightNumber,
		AirportCode:  stringField(payload, "airport"),
		Type:         update.ParseType(stringField(payload, "type")),
		Status:       stringField(payload, "status"),
		Gate:         stringField(payload, "gate"),
		RawPayload:   raw,
	}

	if t, ok := timeField(payload, "departure_at"); ok {
		packet.DepartureAt = &t
	}
	if t, ok := timeField(payload, "arrival_at"); ok {
		packet.ArrivalAt = &t
	}
	return packet, nil
}

package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"flighttrack/internal/domain/update"
)

// SimulatedProvider emits a small fixed set of updates. It stands in for a
// live feed in development and in scheduler smoke runs.
type SimulatedProvider struct{}

func NewSimulatedProvider() *SimulatedProvider {
	return &SimulatedProvider{}
}

func (s *SimulatedProvider) Name() string { return "simulated" }

func (s *SimulatedProvider) FetchUpdates(ctx context.Context) ([]RawPayload, error) {
	return []RawPayload{
		{
			"flight_number": "AX123",
			"airport":       "SFO",
			"type":          "statusChange",
			"status":        map[string]any{"status": "delayed", "reason": "weather"},
			"departure_at":  time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		},
		{
			"flight_number": "BX456",
			"airport":       "LAX",
			"type":          "gateChange",
			"gate":          "22B",
		},
	}, nil
}

func (s *SimulatedProvider) Normalize(payload RawPayload) (*update.Packet, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("serialize raw payload: %w", err)
	}

	packet := &update.Packet{
		Provider:   s.Name(),
		Type:       update.ParseType(stringField(payload, "type")),
		RawPayload: raw,
	}
	packet.FlightNumber = stringField(payload, "flight_number")
	packet.AirportCode = stringField(payload, "airport")
	packet.Gate = stringField(payload, "gate")

	// Status may arrive flat or nested under a status object.
	if nested, ok := payload["status"].(map[string]any); ok {
		packet.Status = stringField(nested, "status")
	} else {
		packet.Status = stringField(payload, "status")
	}

	if t, ok := timeField(payload, "departure_at"); ok {
		packet.DepartureAt = &t
	}
	if t, ok := timeField(payload, "arrival_at"); ok {
		packet.ArrivalAt = &t
	}
	return packet, nil
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

func timeField(payload map[string]any, key string) (time.Time, bool) {
	s, ok := payload[key].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

package update

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeStatusChange   Type = "statusChange"
	TypeScheduleChange Type = "scheduleChange"
	TypeGateChange     Type = "gateChange"
	TypeEstimatedTime  Type = "estimatedTime"
	TypeUnknown        Type = "unknown"
)

// ParseType maps a provider-supplied type string onto the closed enum,
// falling back to unknown rather than failing normalization.
func ParseType(s string) Type {
	switch Type(s) {
	case TypeStatusChange, TypeScheduleChange, TypeGateChange, TypeEstimatedTime:
		return Type(s)
	default:
		return TypeUnknown
	}
}

// Packet is the canonical normalized form of one external update.
// It is created by a provider's normalize step and never mutated after.
type Packet struct {
	Provider     string
	FlightNumber string
	FlightID     *uuid.UUID
	AirportCode  string
	Type         Type
	Status       string
	DepartureAt  *time.Time
	ArrivalAt    *time.Time
	Gate         string
	RawPayload   []byte
}

// FlightUpdate is the persisted record produced from a Packet.
type FlightUpdate struct {
	ID           uuid.UUID  `json:"id"`
	FlightID     *uuid.UUID `json:"flight_id,omitempty"`
	FlightNumber string     `json:"flight_number,omitempty"`
	AirportCode  string     `json:"airport_code,omitempty"`
	Provider     string     `json:"provider"`
	Type         Type       `json:"type"`
	Status       string     `json:"status,omitempty"`
	DepartureAt  *time.Time `json:"departure_at,omitempty"`
	ArrivalAt    *time.Time `json:"arrival_at,omitempty"`
	Gate         string     `json:"gate,omitempty"`
	RawPayload   []byte     `json:"raw_payload,omitempty"`
	Processed    bool       `json:"processed"`
	CreatedAt    time.Time  `json:"created_at"`
}

type Repository interface {
	Save(ctx context.Context, u *FlightUpdate) error
}

package timeline

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventDepartureGateOpen    EventType = "departureGateOpen"
	EventBoardingStart        EventType = "boardingStart"
	EventBoardingComplete     EventType = "boardingComplete"
	EventPushback             EventType = "pushback"
	EventTaxiOut              EventType = "taxiOut"
	EventTakeoff              EventType = "takeoff"
	EventClimb                EventType = "climb"
	EventCruise               EventType = "cruise"
	EventDescent              EventType = "descent"
	EventLanding              EventType = "landing"
	EventTaxiIn               EventType = "taxiIn"
	EventArrivalGateOpen      EventType = "arrivalGateOpen"
	EventBaggageClaimStart    EventType = "baggageClaimStart"
	EventBaggageClaimComplete EventType = "baggageClaimComplete"
	EventCustom               EventType = "custom"
)

type EventStatus string

const (
	StatusScheduled EventStatus = "scheduled"
	StatusEstimated EventStatus = "estimated"
	StatusActual    EventStatus = "actual"
	StatusDelayed   EventStatus = "delayed"
	StatusCancelled EventStatus = "cancelled"
)

// LocationEnRoute marks events that happen between airports.
const LocationEnRoute = "On route"

// Event is one operational milestone of a flight.
type Event struct {
	ID            uuid.UUID         `json:"id"`
	FlightID      uuid.UUID         `json:"flight_id"`
	Type          EventType         `json:"event_type"`
	ScheduledTime time.Time         `json:"scheduled_time"`
	ActualTime    *time.Time        `json:"actual_time,omitempty"`
	EstimatedTime *time.Time        `json:"estimated_time,omitempty"`
	Location      string            `json:"location"`
	Status        EventStatus       `json:"status"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// RequiredEvents is the subset every valid timeline must contain.
var RequiredEvents = []EventType{
	EventDepartureGateOpen,
	EventBoardingStart,
	EventBoardingComplete,
	EventPushback,
	EventTakeoff,
	EventLanding,
	EventArrivalGateOpen,
}

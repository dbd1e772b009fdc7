package timeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"flighttrack/internal/domain/flight"
	domain "flighttrack/internal/domain/timeline"
)

// FlightGetter is the slice of the flight repository the generator needs.
type FlightGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*flight.Flight, error)
}

// generationOrder fixes the iteration order over calculated event times so
// that two generations of the same flight produce identical timelines even
// when events share a scheduled time.
var generationOrder = []domain.EventType{
	domain.EventDepartureGateOpen,
	domain.EventBoardingStart,
	domain.EventBoardingComplete,
	domain.EventPushback,
	domain.EventTaxiOut,
	domain.EventTakeoff,
	domain.EventClimb,
	domain.EventCruise,
	domain.EventDescent,
	domain.EventLanding,
	domain.EventTaxiIn,
	domain.EventArrivalGateOpen,
	domain.EventBaggageClaimStart,
	domain.EventBaggageClaimComplete,
}

// Generator produces and maintains flight timelines. Updates for the same
// flight are serialized through a per-flight lock so recalculation always
// runs against the latest recorded actual event.
type Generator struct {
	flights    FlightGetter
	calculator *Calculator
	validator  *Validator

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewGenerator(flights FlightGetter, calculator *Calculator, validator *Validator) *Generator {
	return &Generator{
		flights:    flights,
		calculator: calculator,
		validator:  validator,
		locks:      make(map[uuid.UUID]*sync.Mutex),
	}
}

// GenerateTimeline derives the full ordered timeline for a flight. The
// result is validated before being returned; an invalid derivation fails
// rather than returning a partial timeline.
func (g *Generator) GenerateTimeline(ctx context.Context, flightID uuid.UUID) ([]domain.Event, error) {
	f, err := g.flights.GetByID(ctx, flightID)
	if err != nil {
		return nil, fmt.Errorf("get flight %s: %w", flightID, err)
	}

	eventTimes := g.calculator.EventTimes(f.AircraftType, f.ScheduledDeparture, f.ScheduledArrival)
	eventTimes = g.calculator.ApplyAirportAdjustments(eventTimes, f.DepartureAirport, f.ArrivalAirport)

	events := g.buildEvents(eventTimes, f)

	if err := g.validator.Validate(events, f); err != nil {
		return nil, err
	}
	return events, nil
}

func (g *Generator) buildEvents(eventTimes map[domain.EventType]time.Time, f *flight.Flight) []domain.Event {
	events := make([]domain.Event, 0, len(eventTimes))
	for _, eventType := range generationOrder {
		scheduled, ok := eventTimes[eventType]
		if !ok {
			continue
		}
		events = append(events, domain.Event{
			ID:            uuid.New(),
			FlightID:      f.ID,
			Type:          eventType,
			ScheduledTime: scheduled,
			Location:      eventLocation(eventType, f),
			Status:        domain.StatusScheduled,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].ScheduledTime.Before(events[j].ScheduledTime)
	})
	return events
}

func eventLocation(eventType domain.EventType, f *flight.Flight) string {
	switch eventType {
	case domain.EventDepartureGateOpen, domain.EventBoardingStart, domain.EventBoardingComplete,
		domain.EventPushback, domain.EventTaxiOut, domain.EventTakeoff:
		return f.DepartureAirport
	case domain.EventLanding, domain.EventTaxiIn, domain.EventArrivalGateOpen,
		domain.EventBaggageClaimStart, domain.EventBaggageClaimComplete:
		return f.ArrivalAirport
	case domain.EventClimb, domain.EventCruise, domain.EventDescent:
		return domain.LocationEnRoute
	default:
		return "Unknown"
	}
}

// UpdateTimeline records an observed actual event and shifts every later
// non-actual event's estimate by the observed delay. The recalculated
// timeline is re-validated; an invalid result fails the whole call.
func (g *Generator) UpdateTimeline(ctx context.Context, actual domain.Event) ([]domain.Event, error) {
	if actual.ActualTime == nil {
		return nil, fmt.Errorf("actual event %s carries no actual time", actual.Type)
	}

	lock := g.flightLock(actual.FlightID)
	lock.Lock()
	defer lock.Unlock()

	// There is no persisted timeline store at this layer; the current
	// timeline is reconstructed from flight data on every update.
	events, err := g.GenerateTimeline(ctx, actual.FlightID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range events {
		if events[i].Type == actual.Type {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("event type %q not present in timeline for flight %s", actual.Type, actual.FlightID)
	}

	events[idx].ActualTime = actual.ActualTime
	events[idx].Status = domain.StatusActual

	delay := actual.ActualTime.Sub(events[idx].ScheduledTime)
	for i := idx + 1; i < len(events); i++ {
		if events[i].Status == domain.StatusActual {
			continue
		}
		estimated := events[i].ScheduledTime.Add(delay)
		events[i].EstimatedTime = &estimated
		events[i].Status = domain.StatusEstimated
	}

	f, err := g.flights.GetByID(ctx, actual.FlightID)
	if err != nil {
		return nil, fmt.Errorf("get flight %s: %w", actual.FlightID, err)
	}
	if err := g.validator.Validate(events, f); err != nil {
		return nil, err
	}
	return events, nil
}

func (g *Generator) flightLock(flightID uuid.UUID) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	lock, ok := g.locks[flightID]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[flightID] = lock
	}
	return lock
}

package timeline

import (
	"errors"
	"fmt"
	"time"

	"flighttrack/internal/domain/flight"
	domain "flighttrack/internal/domain/timeline"
)

var (
	ErrEventsOutOfOrder       = errors.New("timeline events out of chronological order")
	ErrMissingRequiredEvents  = errors.New("timeline missing required events")
	ErrInvalidTimeConstraints = errors.New("timeline event outside allowed time window")
)

// AirportRuleError reports a violated airport-specific rule by name.
type AirportRuleError struct {
	Reason string
}

func (e *AirportRuleError) Error() string {
	return fmt.Sprintf("airport rule violation: %s", e.Reason)
}

// IsValidationError reports whether err is one of the timeline validation
// failures. Callers use it to distinguish a rejected timeline from an
// infrastructure fault.
func IsValidationError(err error) bool {
	var aerr *AirportRuleError
	return errors.Is(err, ErrEventsOutOfOrder) ||
		errors.Is(err, ErrMissingRequiredEvents) ||
		errors.Is(err, ErrInvalidTimeConstraints) ||
		errors.As(err, &aerr)
}

// Validator accepts or rejects a candidate ordered timeline. Checks run in a
// fixed order and the first failure wins: chronology, completeness, time
// window, airport rules.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Validate(events []domain.Event, f *flight.Flight) error {
	if err := v.checkChronologicalOrder(events); err != nil {
		return err
	}
	if err := v.checkRequiredEvents(events); err != nil {
		return err
	}
	if err := v.checkTimeConstraints(events, f); err != nil {
		return err
	}
	return v.checkAirportRules(events)
}

func (v *Validator) checkChronologicalOrder(events []domain.Event) error {
	for i := 1; i < len(events); i++ {
		if events[i].ScheduledTime.Before(events[i-1].ScheduledTime) {
			return ErrEventsOutOfOrder
		}
	}
	return nil
}

func (v *Validator) checkRequiredEvents(events []domain.Event) error {
	present := make(map[domain.EventType]bool, len(events))
	for _, e := range events {
		present[e.Type] = true
	}
	for _, required := range domain.RequiredEvents {
		if !present[required] {
			return ErrMissingRequiredEvents
		}
	}
	return nil
}

func (v *Validator) checkTimeConstraints(events []domain.Event, f *flight.Flight) error {
	if len(events) == 0 {
		return ErrInvalidTimeConstraints
	}

	windowStart := f.ScheduledDeparture.Add(-3 * time.Hour)
	windowEnd := f.ScheduledArrival.Add(3 * time.Hour)

	for _, e := range events {
		if e.ScheduledTime.Before(windowStart) || e.ScheduledTime.After(windowEnd) {
			return ErrInvalidTimeConstraints
		}
	}
	return nil
}

const minGateTime = 15 * time.Minute

func (v *Validator) checkAirportRules(events []domain.Event) error {
	var gateOpen, boardingStart *domain.Event
	for i := range events {
		switch events[i].Type {
		case domain.EventDepartureGateOpen:
			if gateOpen == nil {
				gateOpen = &events[i]
			}
		case domain.EventBoardingStart:
			if boardingStart == nil {
				boardingStart = &events[i]
			}
		}
	}

	if gateOpen != nil && boardingStart != nil {
		if boardingStart.ScheduledTime.Sub(gateOpen.ScheduledTime) < minGateTime {
			return &AirportRuleError{Reason: "minimum gate time violation"}
		}
	}
	return nil
}

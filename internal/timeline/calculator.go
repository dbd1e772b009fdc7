package timeline

import (
	"strings"
	"time"

	domain "flighttrack/internal/domain/timeline"
)

// AircraftCategory buckets aircraft types into coarse size classes that
// drive the departure-side event offsets.
type AircraftCategory string

const (
	CategorySmall  AircraftCategory = "small"
	CategoryMedium AircraftCategory = "medium"
	CategoryLarge  AircraftCategory = "large"
)

// categoryRules is checked in order; the first substring match wins.
// Types matching nothing fall back to medium.
var categoryRules = []struct {
	substr   string
	category AircraftCategory
}{
	{"A380", CategoryLarge},
	{"B747", CategoryLarge},
	{"B777", CategoryLarge},
	{"A320", CategoryMedium},
	{"B737", CategoryMedium},
	{"CRJ", CategorySmall},
	{"ATR", CategorySmall},
	{"E175", CategorySmall},
	{"Dash", CategorySmall},
}

// departureOffsets holds signed offsets from scheduled departure, per
// category. The arrival-side chain (landing onward) does not depend on the
// aircraft category and is computed separately.
var departureOffsets = map[AircraftCategory]map[domain.EventType]time.Duration{
	CategorySmall: {
		domain.EventDepartureGateOpen: -60 * time.Minute,
		domain.EventBoardingStart:     -45 * time.Minute,
		domain.EventBoardingComplete:  -15 * time.Minute,
		domain.EventPushback:          0,
		domain.EventTaxiOut:           10 * time.Minute,
		domain.EventTakeoff:           15 * time.Minute,
	},
	CategoryMedium: {
		domain.EventDepartureGateOpen: -90 * time.Minute,
		domain.EventBoardingStart:     -60 * time.Minute,
		domain.EventBoardingComplete:  -20 * time.Minute,
		domain.EventPushback:          0,
		domain.EventTaxiOut:           15 * time.Minute,
		domain.EventTakeoff:           20 * time.Minute,
	},
	CategoryLarge: {
		domain.EventDepartureGateOpen: -120 * time.Minute,
		domain.EventBoardingStart:     -90 * time.Minute,
		domain.EventBoardingComplete:  -30 * time.Minute,
		domain.EventPushback:          0,
		domain.EventTaxiOut:           20 * time.Minute,
		domain.EventTakeoff:           25 * time.Minute,
	},
}

// AirportAdjustment adds ground delays at congested airports. TaxiOutDelay
// cascades to takeoff so the adjusted timeline stays chronological.
type AirportAdjustment struct {
	TaxiOutDelay time.Duration
	TaxiInDelay  time.Duration
}

// Calculator derives event times from flight attributes. It is a pure
// lookup-table computation: no I/O, deterministic for identical inputs.
type Calculator struct {
	adjustments map[string]AirportAdjustment
}

func NewCalculator() *Calculator {
	return &Calculator{
		adjustments: map[string]AirportAdjustment{
			"JFK": {TaxiOutDelay: 10 * time.Minute, TaxiInDelay: 10 * time.Minute},
		},
	}
}

// SetAirportAdjustment registers or overrides the ground-delay rule for an
// airport code. Not safe for concurrent use with EventTimes.
func (c *Calculator) SetAirportAdjustment(code string, adj AirportAdjustment) {
	c.adjustments[code] = adj
}

// EventTimes returns the base event-type -> time mapping for a flight.
func (c *Calculator) EventTimes(aircraftType string, departure, arrival time.Time) map[domain.EventType]time.Time {
	times := make(map[domain.EventType]time.Time)

	offsets := departureOffsets[categorize(aircraftType)]
	for eventType, offset := range offsets {
		times[eventType] = departure.Add(offset)
	}

	landing := arrival.Add(-10 * time.Minute)
	times[domain.EventLanding] = landing

	taxiIn := landing.Add(5 * time.Minute)
	times[domain.EventTaxiIn] = taxiIn

	arrivalGateOpen := taxiIn.Add(15 * time.Minute)
	times[domain.EventArrivalGateOpen] = arrivalGateOpen

	times[domain.EventBaggageClaimStart] = arrivalGateOpen.Add(10 * time.Minute)
	times[domain.EventBaggageClaimComplete] = arrivalGateOpen.Add(40 * time.Minute)

	return times
}

// ApplyAirportAdjustments shifts ground events by the configured delays for
// the departure and arrival airports. The input map is not modified.
func (c *Calculator) ApplyAirportAdjustments(times map[domain.EventType]time.Time, departureAirport, arrivalAirport string) map[domain.EventType]time.Time {
	adjusted := make(map[domain.EventType]time.Time, len(times))
	for eventType, t := range times {
		adjusted[eventType] = t
	}

	if adj, ok := c.adjustments[departureAirport]; ok && adj.TaxiOutDelay > 0 {
		if t, ok := adjusted[domain.EventTaxiOut]; ok {
			adjusted[domain.EventTaxiOut] = t.Add(adj.TaxiOutDelay)
		}
		// Takeoff follows taxi-out on the ground, so the delay carries over.
		if t, ok := adjusted[domain.EventTakeoff]; ok {
			adjusted[domain.EventTakeoff] = t.Add(adj.TaxiOutDelay)
		}
	}

	if adj, ok := c.adjustments[arrivalAirport]; ok && adj.TaxiInDelay > 0 {
		if t, ok := adjusted[domain.EventTaxiIn]; ok {
			adjusted[domain.EventTaxiIn] = t.Add(adj.TaxiInDelay)
		}
	}

	return adjusted
}

func categorize(aircraftType string) AircraftCategory {
	for _, rule := range categoryRules {
		if strings.Contains(aircraftType, rule.substr) {
			return rule.category
		}
	}
	return CategoryMedium
}

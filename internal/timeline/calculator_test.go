package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "flighttrack/internal/domain/timeline"
)

func TestEventTimesMediumCategory(t *testing.T) {
	c := NewCalculator()
	departure := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	arrival := departure.Add(3 * time.Hour)

	times := c.EventTimes("Boeing B737-800", departure, arrival)

	assert.Equal(t, departure.Add(-3600*time.Second), times[domain.EventBoardingStart])
	assert.Equal(t, departure.Add(-1200*time.Second), times[domain.EventBoardingComplete])
	assert.Equal(t, departure, times[domain.EventPushback])
	assert.Equal(t, departure.Add(900*time.Second), times[domain.EventTaxiOut])
	assert.Equal(t, departure.Add(1200*time.Second), times[domain.EventTakeoff])
}

func TestEventTimesArrivalChainIndependentOfCategory(t *testing.T) {
	c := NewCalculator()
	departure := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	arrival := departure.Add(5 * time.Hour)

	for _, aircraftType := range []string{"CRJ-900", "A320neo", "B747-8"} {
		times := c.EventTimes(aircraftType, departure, arrival)

		landing := arrival.Add(-600 * time.Second)
		assert.Equal(t, landing, times[domain.EventLanding], aircraftType)
		assert.Equal(t, landing.Add(300*time.Second), times[domain.EventTaxiIn], aircraftType)
	}
}

func TestEventTimesIncludesRequiredEvents(t *testing.T) {
	c := NewCalculator()
	departure := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	times := c.EventTimes("A320", departure, departure.Add(2*time.Hour))

	for _, required := range domain.RequiredEvents {
		_, ok := times[required]
		assert.True(t, ok, "missing %s", required)
	}
}

func TestCategorize(t *testing.T) {
	for _, tc := range []struct {
		aircraftType string
		category     AircraftCategory
	}{
		{"Airbus A380-800", CategoryLarge},
		{"B747-400F", CategoryLarge},
		{"A320-200", CategoryMedium},
		{"Boeing B737 MAX", CategoryMedium},
		{"CRJ-700", CategorySmall},
		{"ATR 72-600", CategorySmall},
		{"Concorde", CategoryMedium}, // unknown types fall back to medium
	} {
		assert.Equal(t, tc.category, categorize(tc.aircraftType), tc.aircraftType)
	}
}

func TestAirportAdjustmentsCongestedDeparture(t *testing.T) {
	c := NewCalculator()
	departure := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	arrival := departure.Add(6 * time.Hour)

	base := c.EventTimes("A320", departure, arrival)
	adjusted := c.ApplyAirportAdjustments(base, "JFK", "SFO")

	assert.Equal(t, base[domain.EventTaxiOut].Add(600*time.Second), adjusted[domain.EventTaxiOut])
	// The delay carries into takeoff so ordering survives.
	assert.Equal(t, base[domain.EventTakeoff].Add(600*time.Second), adjusted[domain.EventTakeoff])
	// Arrival side untouched.
	assert.Equal(t, base[domain.EventTaxiIn], adjusted[domain.EventTaxiIn])
	// Input map is not mutated.
	assert.Equal(t, departure.Add(900*time.Second), base[domain.EventTaxiOut])
}

func TestAirportAdjustmentsCongestedArrival(t *testing.T) {
	c := NewCalculator()
	departure := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	arrival := departure.Add(6 * time.Hour)

	base := c.EventTimes("A320", departure, arrival)
	adjusted := c.ApplyAirportAdjustments(base, "SFO", "JFK")

	assert.Equal(t, base[domain.EventTaxiIn].Add(600*time.Second), adjusted[domain.EventTaxiIn])
	assert.Equal(t, base[domain.EventTaxiOut], adjusted[domain.EventTaxiOut])
	// Arrival gate open still follows the delayed taxi-in.
	assert.True(t, adjusted[domain.EventTaxiIn].Before(adjusted[domain.EventArrivalGateOpen]))
}

func TestSetAirportAdjustmentExtendsRuleTable(t *testing.T) {
	c := NewCalculator()
	c.SetAirportAdjustment("LHR", AirportAdjustment{TaxiOutDelay: 5 * time.Minute})

	departure := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	base := c.EventTimes("A320", departure, departure.Add(2*time.Hour))
	adjusted := c.ApplyAirportAdjustments(base, "LHR", "AMS")

	require.Contains(t, adjusted, domain.EventTaxiOut)
	assert.Equal(t, base[domain.EventTaxiOut].Add(5*time.Minute), adjusted[domain.EventTaxiOut])
}

func TestEventTimesDeterministic(t *testing.T) {
	c := NewCalculator()
	departure := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	arrival := departure.Add(4 * time.Hour)

	first := c.EventTimes("B737", departure, arrival)
	second := c.EventTimes("B737", departure, arrival)
	assert.Equal(t, first, second)
}

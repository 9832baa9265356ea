package orders

import (
	"regexp"
	"testing"

	"threadsntrends_back_end/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestComputeTotal(t *testing.T) {
	total := ComputeTotal(sampleProducts(), 99)
	assert.Equal(t, "229", total.String())

	assert.Equal(t, "99", ComputeTotal(nil, 99).String())

	// 0.1 + 0.2 ne doit pas dériver
	tricky := []models.OrderProduct{{Quantity: 1, Price: 0.1}, {Quantity: 1, Price: 0.2}}
	assert.Equal(t, "0.3", ComputeTotal(tricky, 0).String())
}

func TestWithinTolerance(t *testing.T) {
	expected := ComputeTotal(sampleProducts(), 99)
	assert.True(t, withinTolerance(expected, 229))
	assert.True(t, withinTolerance(expected, 229.01))
	assert.True(t, withinTolerance(expected, 228.995))
	assert.False(t, withinTolerance(expected, 229.02))
	assert.False(t, withinTolerance(expected, 130))
}

func TestToMinorUnits(t *testing.T) {
	assert.EqualValues(t, 5000, ToMinorUnits(50))
	assert.EqualValues(t, 1999, ToMinorUnits(19.99))
	assert.EqualValues(t, 29, ToMinorUnits(0.285))
	assert.Equal(t, "229.5", fromMinorUnits(22950).String())
}

func TestOrderIDs(t *testing.T) {
	pattern := regexp.MustCompile(`^ORD-[0-9A-F]{8}$`)

	a, b := NewOrderID(), NewOrderID()
	assert.Regexp(t, pattern, a)
	assert.NotEqual(t, a, b)

	derived := OrderIDForSession("cs_test_abc")
	assert.Regexp(t, pattern, derived)
	assert.Equal(t, derived, OrderIDForSession("cs_test_abc"))
	assert.NotEqual(t, derived, OrderIDForSession("cs_test_abd"))
}

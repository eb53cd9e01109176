package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextCleaningDate(t *testing.T) {
	lastCleaned := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	next := NextCleaningDate(lastCleaned, 604800)
	assert.Equal(t, lastCleaned.Add(7*24*time.Hour), next)

	next = NextCleaningDate(lastCleaned, 86400)
	assert.Equal(t, lastCleaned.Add(24*time.Hour), next)
}

func TestNextCleaningDatePreservesSubSecondPrecision(t *testing.T) {
	lastCleaned := time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.UTC)

	next := NextCleaningDate(lastCleaned, 1)
	assert.Equal(t, lastCleaned.Nanosecond(), next.Nanosecond())
	assert.Equal(t, time.Second, next.Sub(lastCleaned))
}

func TestNextCleaningDateDefaultInterval(t *testing.T) {
	lastCleaned := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	next := NextCleaningDate(lastCleaned, DefaultIntervalSeconds)
	assert.Equal(t, lastCleaned.AddDate(0, 0, 7), next)
}

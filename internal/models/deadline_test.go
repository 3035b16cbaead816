package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeadlineBeforeSaveDerivesStartDate(t *testing.T) {
	d := Deadline{
		Name:             "car insurance",
		ExpirationDate:   time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC),
		NotifyDaysBefore: 30,
	}

	require.NoError(t, d.BeforeSave(nil))
	assert.Equal(t, time.Date(2025, time.May, 16, 0, 0, 0, 0, time.UTC), d.NotificationStartDate)

	// Moving the expiration shifts the window with it.
	d.ExpirationDate = time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, d.BeforeSave(nil))
	assert.Equal(t, time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC), d.NotificationStartDate)

	// So does widening or narrowing the notify window.
	d.NotifyDaysBefore = 7
	require.NoError(t, d.BeforeSave(nil))
	assert.Equal(t, time.Date(2025, time.July, 25, 0, 0, 0, 0, time.UTC), d.NotificationStartDate)

	// A stale hand-written value never survives a save.
	d.NotificationStartDate = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, d.BeforeSave(nil))
	assert.Equal(t, time.Date(2025, time.July, 25, 0, 0, 0, 0, time.UTC), d.NotificationStartDate)
}

func TestDeadlineBeforeSaveZeroNotifyDays(t *testing.T) {
	d := Deadline{
		Name:             "same-day reminder",
		ExpirationDate:   time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC),
		NotifyDaysBefore: 0,
	}

	require.NoError(t, d.BeforeSave(nil))
	assert.Equal(t, d.ExpirationDate, d.NotificationStartDate)
}

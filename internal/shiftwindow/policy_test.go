package shiftwindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldorder/backend/internal/domain"
)

func at(t *testing.T, hour, min, sec int) time.Time {
	t.Helper()
	return time.Date(2024, 1, 10, hour, min, sec, 0, time.UTC)
}

func TestIsAllowedBoundaries(t *testing.T) {
	policy := NewPolicy(time.UTC)

	cases := []struct {
		name    string
		shift   domain.Shift
		now     time.Time
		allowed bool
	}{
		{"am open boundary inclusive", domain.ShiftAM, at(t, 6, 0, 0), true},
		{"am last second", domain.ShiftAM, at(t, 11, 59, 59), true},
		{"am close boundary exclusive", domain.ShiftAM, at(t, 12, 0, 0), false},
		{"am before open", domain.ShiftAM, at(t, 5, 59, 59), false},
		{"pm before open", domain.ShiftPM, at(t, 11, 59, 59), false},
		{"pm open boundary inclusive", domain.ShiftPM, at(t, 12, 0, 0), true},
		{"pm last second", domain.ShiftPM, at(t, 15, 59, 59), true},
		{"pm close boundary exclusive", domain.ShiftPM, at(t, 16, 0, 0), false},
		{"pm mid window", domain.ShiftPM, at(t, 13, 0, 0), true},
		{"am during pm window", domain.ShiftAM, at(t, 13, 0, 0), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			allowed, err := policy.IsAllowed(tc.shift, tc.now)
			require.NoError(t, err)
			assert.Equal(t, tc.allowed, allowed)
		})
	}
}

func TestIsAllowedUnknownShift(t *testing.T) {
	policy := NewPolicy(time.UTC)

	_, err := policy.IsAllowed(domain.Shift("NIGHT"), at(t, 10, 0, 0))
	require.ErrorIs(t, err, ErrInvalidShift)

	require.ErrorIs(t, policy.Validate(domain.Shift("")), ErrInvalidShift)
	require.NoError(t, policy.Validate(domain.ShiftAM))
	require.NoError(t, policy.Validate(domain.ShiftPM))
}

func TestIsAllowedRespectsLocation(t *testing.T) {
	// 09:00 UTC is 16:00 in UTC+7: inside the AM window in UTC, outside
	// every window in the policy's own timezone.
	jakarta := time.FixedZone("UTC+7", 7*3600)
	policy := NewPolicy(jakarta)

	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	allowed, err := policy.IsAllowed(domain.ShiftAM, now)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = policy.IsAllowed(domain.ShiftPM, now)
	require.NoError(t, err)
	assert.False(t, allowed)
}

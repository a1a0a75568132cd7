package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestOverlaps(t *testing.T) {
	testCases := []struct {
		name     string
		s1, e1   string
		s2, e2   string
		expected bool
	}{
		{
			name: "disjoint ranges",
			s1:   "2024-07-01", e1: "2024-07-10",
			s2: "2024-07-15", e2: "2024-07-20",
			expected: false,
		},
		{
			name: "back-to-back is not an overlap",
			s1:   "2024-07-01", e1: "2024-07-10",
			s2: "2024-07-10", e2: "2024-07-20",
			expected: false,
		},
		{
			name: "contained range overlaps",
			s1:   "2024-07-01", e1: "2024-07-10",
			s2: "2024-07-05", e2: "2024-07-08",
			expected: true,
		},
		{
			name: "partial overlap at the end",
			s1:   "2024-07-01", e1: "2024-07-10",
			s2: "2024-07-09", e2: "2024-07-15",
			expected: true,
		},
		{
			name: "identical ranges overlap",
			s1:   "2024-07-01", e1: "2024-07-10",
			s2: "2024-07-01", e2: "2024-07-10",
			expected: true,
		},
		{
			name: "single shared night",
			s1:   "2024-07-09", e1: "2024-07-10",
			s2: "2024-07-01", e2: "2024-07-10",
			expected: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Overlaps(date(tc.s1), date(tc.e1), date(tc.s2), date(tc.e2))
			assert.Equal(t, tc.expected, got)
			// The predicate is symmetric.
			assert.Equal(t, tc.expected, Overlaps(date(tc.s2), date(tc.e2), date(tc.s1), date(tc.e1)))
		})
	}
}

func TestNights(t *testing.T) {
	assert.Equal(t, int64(9), Nights(date("2024-07-01"), date("2024-07-10")))
	assert.Equal(t, int64(1), Nights(date("2024-07-09"), date("2024-07-10")))
}

package reltime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSinceBoundaries(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		age  time.Duration
		want string
	}{
		{name: "zero seconds", age: 0, want: "now"},
		{name: "just under a minute", age: 59 * time.Second, want: "now"},
		{name: "exactly a minute", age: 60 * time.Second, want: "1m"},
		{name: "just over a minute", age: 61 * time.Second, want: "1m"},
		{name: "just under an hour", age: 3599 * time.Second, want: "59m"},
		{name: "just over an hour", age: 3601 * time.Second, want: "1h"},
		{name: "just under a day", age: 24*time.Hour - time.Second, want: "23h"},
		{name: "a day", age: 24 * time.Hour, want: "1d"},
		{name: "just under a week", age: 7*24*time.Hour - time.Second, want: "6d"},
		{name: "a week", age: 7 * 24 * time.Hour, want: "1w"},
		{name: "three weeks and change", age: 22 * 24 * time.Hour, want: "3w"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Since(now.Add(-tt.age), now))
		})
	}
}

func TestSinceZeroTime(t *testing.T) {
	assert.Equal(t, "", Since(time.Time{}, time.Now()))
}

package clierr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil error", err: nil, want: 0},
		{name: "plain error", err: errors.New("boom"), want: 1},
		{name: "not found", err: New(CodeNotFound, "no such plan"), want: 2},
		{name: "guardrail", err: New(CodeGuardrail, "refused"), want: 4},
		{name: "wrapped deep", err: fmt.Errorf("outer: %w", New(CodeLocalState, "no repo")), want: 3},
		{name: "zero code normalized", err: New(0, "bad"), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeOf(tt.err))
		})
	}
}

func TestExitErrorMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeFailure, "fetching dashboard", cause)

	assert.Equal(t, "fetching dashboard: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

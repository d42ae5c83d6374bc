package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient", NewTransientError(errors.New("503"), 503), true},
		{"wrapped transient", fmt.Errorf("fetch: %w", NewTransientError(errors.New("429"), 429)), true},
		{"conn reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"timeout text", errors.New("dial tcp: i/o timeout"), true},
		{"not found", errors.New("unexpected status 404"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 301, 400, 403, 404} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, ClassTransient, ClassifyError(NewTransientError(errors.New("x"), 502)))
	assert.Equal(t, ClassPermanent, ClassifyError(errors.New("blocked (captcha)")))
}

package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplay(t *testing.T) {
	tests := []struct {
		name   string
		custom string
		err    error
		want   string
	}{
		{"custom only", "Chat already exists", nil, "Chat already exists"},
		{"cause only", "", errors.New("network down"), "network down"},
		{"both", "Login failed", errors.New("bad password"), "Login failed:bad password"},
		{"neither", "", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Display(tt.custom, tt.err))
		})
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("add chat: %w", Conflict("Chat already exists"))
	assert.Equal(t, KindConflict, KindOf(err))
	assert.True(t, Is(err, KindConflict))
	assert.False(t, Is(err, KindValidation))
	assert.Equal(t, "Chat already exists", Message(err))
}

func TestBackendUnwraps(t *testing.T) {
	cause := errors.New("permission denied")
	err := Backend("Can not update user", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindBackend, KindOf(err))
	assert.Equal(t, "Can not update user:permission denied", err.Error())
	assert.Equal(t, KindBackend, KindOf(errors.New("plain")))
	assert.Equal(t, "not_found", KindNotFound.String())
}

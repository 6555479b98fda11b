package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collab-rooms/internal/models"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     any
		wantErr string
	}{
		{
			name: "valid join",
			req:  models.JoinRoomRequest{RoomID: "ABC123", Username: "bob", UserID: "u2"},
		},
		{
			name:    "missing room id uses json name",
			req:     models.JoinRoomRequest{Username: "bob", UserID: "u2"},
			wantErr: "roomId is required",
		},
		{
			name:    "message too long",
			req:     models.SendMessageRequest{RoomID: "ABC123", Username: "bob", Message: strings.Repeat("x", 4001)},
			wantErr: "message is too long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

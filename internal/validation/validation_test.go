package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-lite/internal/apperr"
)

type sample struct {
	OtherUserID int64  `json:"otherUserId" validate:"required,gt=0"`
	Kind        string `json:"type" validate:"omitempty,oneof=text image"`
	Name        string `json:"name" validate:"omitempty,min=3"`
}

func TestStructUsesJSONNames(t *testing.T) {
	err := Struct(sample{})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, "otherUserId is required", err.Error())
}

func TestStructMessages(t *testing.T) {
	err := Struct(sample{OtherUserID: 1, Kind: "video"})
	require.Error(t, err)
	assert.Equal(t, "type must be one of: text, image", err.Error())

	err = Struct(sample{OtherUserID: 1, Name: "ab"})
	require.Error(t, err)
	assert.Equal(t, "name must be at least 3 characters", err.Error())

	assert.NoError(t, Struct(sample{OtherUserID: 1, Kind: "text"}))
}

func TestMessageForeignError(t *testing.T) {
	assert.Equal(t, "invalid request body", Message(assert.AnError))
}

func TestPhoneTag(t *testing.T) {
	type contact struct {
		Phone string `json:"phone" validate:"required,phone"`
	}
	assert.NoError(t, Struct(contact{Phone: "+14155552671"}))
	assert.NoError(t, Struct(contact{Phone: "14155552671"}))

	err := Struct(contact{Phone: "0123"})
	require.Error(t, err)
	assert.Equal(t, "phone must be a valid phone number", err.Error())
}

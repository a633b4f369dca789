package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("send: %w", Validation("text is required"))
	assert.Equal(t, KindValidation, KindOf(err))
	assert.True(t, Is(err, KindValidation))
	assert.False(t, Is(nil, KindValidation))
}

func TestKindOfForeignErrorIsInfrastructure(t *testing.T) {
	assert.Equal(t, KindInfrastructure, KindOf(errors.New("boom")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		Authentication("x"):    http.StatusUnauthorized,
		Authorization("x"):     http.StatusForbidden,
		Validation("x"):        http.StatusBadRequest,
		NotFound("x"):          http.StatusNotFound,
		Conflict("x"):          http.StatusConflict,
		Infra("x", nil):        http.StatusInternalServerError,
		errors.New("database"): http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, HTTPStatus(err), err.Error())
	}
}

func TestPublicMessageHidesInfrastructure(t *testing.T) {
	assert.Equal(t, "message not found", PublicMessage(NotFound("message not found"), "failed"))
	assert.Equal(t, "failed", PublicMessage(Infra("insert message", errors.New("dial tcp")), "failed"))
	assert.Equal(t, "failed", PublicMessage(errors.New("raw"), "failed"))
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("deadlock")
	err := Infra("store message", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "store message: deadlock", err.Error())
}

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/playmatatu/tombola/internal/tombola"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&tombola.EligibilityError{Reason: tombola.ErrNotEnoughParticipants}, http.StatusUnprocessableEntity},
		{&tombola.SelectionError{Err: errors.New("down")}, http.StatusBadGateway},
		{tombola.ErrBusy, http.StatusConflict},
		{tombola.ErrManualModeOnly, http.StatusConflict},
		{tombola.ErrRegistryModeOnly, http.StatusConflict},
		{fmt.Errorf("wrapped: %w", tombola.ErrUnknownCategory), http.StatusNotFound},
		{tombola.ErrParticipantNotFound, http.StatusNotFound},
		{tombola.ErrEmptyName, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestStaticOperatorValidator(t *testing.T) {
	v := StaticOperatorValidator("host", "letmein")

	op, err := v("host", "letmein", "127.0.0.1")
	assert.NoError(t, err)
	assert.Equal(t, "host", op.Name)
	assert.True(t, op.HasRole("operator"))

	_, err = v("host", "nope", "127.0.0.1")
	assert.Error(t, err)
	_, err = v("other", "letmein", "127.0.0.1")
	assert.Error(t, err)
}

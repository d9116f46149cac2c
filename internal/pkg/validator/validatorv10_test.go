package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type confirmInput struct {
	UserID int64  `validate:"required,gt=0"`
	Code   string `validate:"required,max=32"`
}

type setupInput struct {
	IdempotencyKey string `validate:"omitempty,idempotency_key"`
}

func TestV10Validator(t *testing.T) {
	v, err := NewV10Validator()
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, v.Validate(confirmInput{UserID: 1, Code: "123456"}))
		assert.NoError(t, v.Validate(setupInput{}))
		assert.NoError(t, v.Validate(setupInput{IdempotencyKey: "0198c1c6-aaaa_bbbb"}))
	})

	t.Run("field errors in snake case", func(t *testing.T) {
		err := v.Validate(confirmInput{})

		var verr V10ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, map[string]string{
			"user_id": "UserID is a required field",
			"code":    "Code is a required field",
		}, verr.Values())
	})

	t.Run("idempotency key rule", func(t *testing.T) {
		err := v.Validate(setupInput{IdempotencyKey: "bad key!"})

		var verr V10ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "IdempotencyKey must be 8-64 letters, digits, '-' or '_'", verr["idempotency_key"])
	})

	t.Run("non struct", func(t *testing.T) {
		assert.Error(t, v.Validate("nope"))
	})
}

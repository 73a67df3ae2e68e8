package authflow_test

import (
	"testing"

	"github.com/nfrund/goby-messenger/internal/authflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Collect(t *testing.T) {
	v := authflow.NewValidator()

	t.Run("login ignores the name field", func(t *testing.T) {
		record, err := v.Collect(authflow.IntentLogin, "Stale Name", " a@b.com ", "secret")
		require.NoError(t, err)
		assert.Equal(t, authflow.CredentialRecord{Email: "a@b.com", Password: "secret"}, record)
	})

	t.Run("register requires a name", func(t *testing.T) {
		_, err := v.Collect(authflow.IntentRegister, "  ", "a@b.com", "secret")
		assert.ErrorIs(t, err, authflow.ErrNameRequired)
	})

	t.Run("register keeps the trimmed name", func(t *testing.T) {
		record, err := v.Collect(authflow.IntentRegister, " Ada ", "a@b.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, "Ada", record.Name)
	})

	t.Run("invalid email and missing password are reported per field", func(t *testing.T) {
		_, err := v.Collect(authflow.IntentLogin, "", "not-an-email", "")
		require.Error(t, err)

		var fe authflow.FieldErrors
		require.ErrorAs(t, err, &fe)
		assert.ElementsMatch(t, authflow.FieldErrors{
			{Field: "email", Rule: "email"},
			{Field: "password", Rule: "required"},
		}, fe)
	})
}

func TestParseIntent(t *testing.T) {
	intent, err := authflow.ParseIntent("register")
	require.NoError(t, err)
	assert.Equal(t, authflow.IntentRegister, intent)

	intent, err = authflow.ParseIntent(" LOGIN ")
	require.NoError(t, err)
	assert.Equal(t, authflow.IntentLogin, intent)

	_, err = authflow.ParseIntent("logout")
	assert.ErrorIs(t, err, authflow.ErrInvalidIntent)
}

func TestOutcome_Succeeded(t *testing.T) {
	assert.True(t, authflow.Outcome{OK: true}.Succeeded())
	assert.False(t, authflow.Outcome{OK: true, Error: "x"}.Succeeded())
	assert.False(t, authflow.Outcome{}.Succeeded())
}

func TestLabelsFor(t *testing.T) {
	login := authflow.LabelsFor(authflow.IntentLogin)
	assert.Equal(t, "Sign in", login.Submit)
	assert.Equal(t, "Create an account", login.Toggle)

	register := authflow.LabelsFor(authflow.IntentRegister)
	assert.Equal(t, "Register", register.Submit)
	assert.Equal(t, "Already have an account?", register.Prompt)
	assert.Equal(t, "Login", register.Toggle)
}

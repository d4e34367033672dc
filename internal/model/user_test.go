package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferencesKeepUnknownSections(t *testing.T) {
	raw := []byte(`{"pomodoro":{"work_duration":50,"break_duration":10,"long_break_duration":20,"long_break_interval":3},"theme":{"mode":"dark"}}`)

	var prefs Preferences
	require.NoError(t, json.Unmarshal(raw, &prefs))
	require.NotNil(t, prefs.Pomodoro)
	assert.Equal(t, 50, prefs.Pomodoro.WorkDuration)

	// Updating the pomodoro section must not drop the theme section.
	prefs.Pomodoro.WorkDuration = 45

	out, err := json.Marshal(prefs)
	require.NoError(t, err)

	var round map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &round))
	assert.Contains(t, round, "theme")
	assert.JSONEq(t, `{"mode":"dark"}`, string(round["theme"]))
	assert.Contains(t, string(round["pomodoro"]), `"work_duration":45`)
}

func TestPreferencesScanNull(t *testing.T) {
	var prefs Preferences
	require.NoError(t, prefs.Scan(nil))
	assert.Nil(t, prefs.Pomodoro)

	value, err := prefs.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(value.([]byte)))
}

func TestDefaultPomodoroPreferences(t *testing.T) {
	prefs := DefaultPomodoroPreferences()
	assert.Equal(t, 25, prefs.WorkDuration)
	assert.Equal(t, 5, prefs.BreakDuration)
	assert.Equal(t, 15, prefs.LongBreakDuration)
	assert.Equal(t, 4, prefs.LongBreakInterval)
}

func TestPasswordHashNeverSerialized(t *testing.T) {
	user := User{
		Email:        "a@example.com",
		Username:     "a",
		PasswordHash: "$2a$10$secret",
		Provider:     "google",
		ProviderID:   "123",
	}

	out, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "secret")
	assert.NotContains(t, string(out), "password_hash")
	assert.NotContains(t, string(out), "provider")
}

package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worksense/backend/models"
)

func TestParseSuggestionsFenceInvariance(t *testing.T) {
	plain := `{"epics":[{"name":"Login","description":"Auth flow","priority":"high"}]}`
	fenced := "```json\n" + plain + "\n```"
	fencedNoTag := "```\n" + plain + "\n```"

	for _, raw := range []string{plain, fenced, fencedNoTag} {
		got, err := ParseSuggestions(raw, KeyEpics)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Login", got[0].Name)
		require.NotNil(t, got[0].Description)
		assert.Equal(t, "Auth flow", *got[0].Description)
		assert.Equal(t, models.PriorityHigh, got[0].Priority)
	}
}

func TestParseSuggestionsFieldNormalization(t *testing.T) {
	raw := `{"stories":[
		{"name":"  As a user, I want to log in  ","priority":"HIGH"},
		{"priority":"urgent","description":"  padded  "},
		{"name":42}
	]}`

	got, err := ParseSuggestions(raw, KeyStories)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "As a user, I want to log in", got[0].Name)
	assert.Equal(t, models.PriorityHigh, got[0].Priority)
	assert.Nil(t, got[0].Description)

	assert.Equal(t, "", got[1].Name)
	assert.Equal(t, models.PriorityMedium, got[1].Priority)
	require.NotNil(t, got[1].Description)
	assert.Equal(t, "padded", *got[1].Description)

	assert.Equal(t, "42", got[2].Name)
}

func TestParseSuggestionsMalformed(t *testing.T) {
	_, err := ParseSuggestions("not json at all", KeyEpics)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadResponse))

	_, err = ParseSuggestions(`{"stories":[]}`, KeyEpics)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadResponse))
}

func TestNormalizePriority(t *testing.T) {
	cases := map[string]models.Priority{
		"lowest":  models.PriorityLowest,
		"low":     models.PriorityLow,
		"medium":  models.PriorityMedium,
		"high":    models.PriorityHigh,
		"highest": models.PriorityHighest,
		"HIGH":    models.PriorityHigh,
		"Highest": models.PriorityHighest,
		"urgent":  models.PriorityMedium,
		"":        models.PriorityMedium,
		"  low ":  models.PriorityLow,
	}
	for input, want := range cases {
		assert.Equal(t, want, NormalizePriority(input), "input %q", input)
	}
}

func TestFilterExisting(t *testing.T) {
	suggestions := []models.AiSuggestion{
		{Name: "Login", Priority: models.PriorityMedium},
		{Name: "Signup", Priority: models.PriorityMedium},
		{Name: "", Priority: models.PriorityMedium},
	}

	got := FilterExisting(suggestions, []string{"Login"})
	require.Len(t, got, 1)
	assert.Equal(t, "Signup", got[0].Name)
}

func TestStripFencesSingleLine(t *testing.T) {
	assert.Equal(t, `{"epics":[]}`, StripFences("```json{\"epics\":[]}```"))
	assert.Equal(t, `{"epics":[]}`, StripFences(`{"epics":[]}`))
}

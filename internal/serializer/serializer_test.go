package serializer_test

import (
	"errors"
	"strings"
	"testing"

	"quest-maker/internal/models"
	"quest-maker/internal/serializer"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpLoadRoundTrip(t *testing.T) {
	metas := map[string]models.GameMeta{
		"default quest": models.DefaultQuest(),
		"special characters": {
			Title: "Quote \" and </script> & <b>",
			Icon:  "🧪",
			Scenarios: models.NewGraph(
				models.Scenario{ID: "start", Text: "Line one\nLine two\ttab", Choices: []models.Choice{{Text: "ü → ∞", Next: "dangling"}}},
				models.Scenario{ID: "zz_last", Ending: true, Achievement: "A \"quoted\" badge"},
			),
		},
		"empty choices and fields": {
			Title:     "",
			Icon:      "",
			Scenarios: models.NewGraph(models.Scenario{ID: "start"}),
		},
	}
	for name, meta := range metas {
		t.Run(name, func(t *testing.T) {
			data, err := serializer.Dump(meta)
			require.NoError(t, err)

			got, err := serializer.Load(data)
			require.NoError(t, err)
			assert.True(t, meta.Equal(got), cmp.Diff(meta.Scenarios.Scenarios(), got.Scenarios.Scenarios()))
			assert.Equal(t, meta.Scenarios.IDs(), got.Scenarios.IDs())
		})
	}
}

func TestDumpFormat(t *testing.T) {
	data, err := serializer.Dump(models.DefaultQuest())
	require.NoError(t, err)

	s := string(data)
	assert.True(t, strings.HasPrefix(s, "{\n  \"title\": \"The Mini Mundane Quest\",\n  \"icon\": \"🍕\",\n  \"scenarios\": {\n    \"start\": {"))
	assert.Less(t, strings.Index(s, `"pizza_ending"`), strings.Index(s, `"cereal_ending"`))
	assert.Less(t, strings.Index(s, `"cereal_ending"`), strings.Index(s, `"sleep_ending"`))
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want error
	}{
		{"truncated", `{"title": "x", "icon": "y", "scenarios": {`, models.ErrParse},
		{"not json at all", `const scenarios = {}`, models.ErrParse},
		{"array root", `[]`, models.ErrSchema},
		{"missing title", `{"icon": "y", "scenarios": {"start": {}}}`, models.ErrSchema},
		{"missing icon", `{"title": "x", "scenarios": {"start": {}}}`, models.ErrSchema},
		{"missing scenarios", `{"title": "x", "icon": "y"}`, models.ErrSchema},
		{"numeric title", `{"title": 5, "icon": "y", "scenarios": {"start": {}}}`, models.ErrSchema},
		{"scenarios is a list", `{"title": "x", "icon": "y", "scenarios": []}`, models.ErrSchema},
		{"scenarios is null", `{"title": "x", "icon": "y", "scenarios": null}`, models.ErrSchema},
		{"no start", `{"title": "x", "icon": "y", "scenarios": {"other": {}}}`, models.ErrSchema},
		{"bad choice shape", `{"title": "x", "icon": "y", "scenarios": {"start": {"choices": "go"}}}`, models.ErrSchema},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := serializer.Load([]byte(tc.doc))
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestLoadIgnoresUnknownFields(t *testing.T) {
	doc := `{"version": 3, "title": "x", "icon": "y", "scenarios": {"start": {"text": "hi", "mood": "calm", "choices": [{"text": "go", "next": "start", "hint": true}]}}}`
	meta, err := serializer.Load([]byte(doc))
	require.NoError(t, err)

	start, ok := meta.Scenarios.Get(models.StartID)
	require.True(t, ok)
	assert.Equal(t, "hi", start.Text)
	assert.Equal(t, []models.Choice{{Text: "go", Next: "start"}}, start.Choices)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "the_mini_mundane_quest_data.json", serializer.Filename("The Mini Mundane Quest"))
	assert.Equal(t, "_space_odyssey_data.json", serializer.Filename(" Space \t\n Odyssey"))
	assert.Equal(t, "квест_data.json", serializer.Filename("КВЕСТ"))
}

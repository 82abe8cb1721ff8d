package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDebeziumMessage(t *testing.T) {
	payload := []byte(`{
		"payload": {
			"before": null,
			"after": {
				"id": "case-1",
				"tenant_id": "tenant-a",
				"person_name": "Jane Roe",
				"age_at_disappearance": 16,
				"is_minor": true,
				"jurisdiction": "NSW",
				"locality": "Dubbo",
				"circumstance_tags": "[\"last_seen_transport\",\"out_of_character\"]",
				"disappeared_on": "2019-03-04",
				"last_tip_at": "2024-11-02T08:30:00Z",
				"created_at": "2019-03-05T00:00:00Z",
				"updated_at": "2024-11-02T08:30:00Z"
			},
			"source": {"connector": "postgresql", "db": "cases", "schema": "public", "table": "cases"},
			"op": "c",
			"ts_ms": 1730536200000
		}
	}`)

	envelope, err := ParseDebeziumMessage(payload)
	require.NoError(t, err)
	assert.True(t, envelope.Payload.IsCreate())
	assert.False(t, envelope.Payload.IsDelete())
	assert.Equal(t, "cases", envelope.Payload.Source.Table)
	assert.Equal(t, time.UnixMilli(1730536200000), envelope.Payload.Timestamp())

	row, err := envelope.Payload.ParseCaseRow()
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "case-1", row.ID)
	assert.Equal(t, "tenant-a", row.TenantID)
	assert.False(t, row.IsDeleted())

	facts := row.ToFacts()
	assert.Equal(t, "Jane Roe", facts.PersonName)
	require.NotNil(t, facts.AgeAtDisappearance)
	assert.Equal(t, 16, *facts.AgeAtDisappearance)
	assert.True(t, facts.IsMinor)
	require.NotNil(t, facts.DisappearedOn)
	assert.Equal(t, time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC), *facts.DisappearedOn)
	assert.ElementsMatch(t, []string{"last_seen_transport", "out_of_character"}, facts.CircumstanceTags)

	lead, tip, activity := row.ActivityTimes()
	assert.Nil(t, lead)
	require.NotNil(t, tip)
	assert.Equal(t, time.Date(2024, 11, 2, 8, 30, 0, 0, time.UTC), *tip)
	assert.Nil(t, activity)
}

func TestParseCaseRow_DeleteFallsBackToBefore(t *testing.T) {
	deleted := "2025-01-10T00:00:00Z"
	envelope, err := ParseDebeziumMessage([]byte(`{
		"payload": {
			"before": {"id": "case-2", "tenant_id": "tenant-a", "person_name": "John Roe", "deleted_at": "` + deleted + `", "created_at": "2020-01-01T00:00:00Z", "updated_at": "2025-01-10T00:00:00Z"},
			"after": null,
			"source": {"connector": "postgresql", "db": "cases", "schema": "public", "table": "cases"},
			"op": "d",
			"ts_ms": 1736467200000
		}
	}`))
	require.NoError(t, err)
	assert.True(t, envelope.Payload.IsDelete())

	row, err := envelope.Payload.ParseCaseRow()
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "case-2", row.ID)
	assert.True(t, row.IsDeleted())
}

func TestParseCaseRow_EmptyPayload(t *testing.T) {
	envelope, err := ParseDebeziumMessage([]byte(`{"payload": {"op": "u", "before": null, "after": null}}`))
	require.NoError(t, err)

	row, err := envelope.Payload.ParseCaseRow()
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestParseDebeziumTimestamp(t *testing.T) {
	cases := map[string]time.Time{
		"2024-11-02T08:30:00Z":        time.Date(2024, 11, 2, 8, 30, 0, 0, time.UTC),
		"2024-11-02T08:30:00.123456Z": time.Date(2024, 11, 2, 8, 30, 0, 123456000, time.UTC),
		"2024-11-02 08:30:00":         time.Date(2024, 11, 2, 8, 30, 0, 0, time.UTC),
		"2024-11-02":                  time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC),
		"":                            {},
		"not a timestamp":             {},
	}

	for input, want := range cases {
		assert.Equal(t, want, parseDebeziumTimestamp(input), "input %q", input)
	}
}

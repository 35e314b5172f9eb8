package serializers

import (
	"encoding/json"
	"testing"

	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertRoundTrip[C ~string](t *testing.T, config []domain.ConstantConfig[C]) {
	t.Helper()

	forward := ExtractConstants(config)
	reverse := ExtractConstantsReverse(config)
	require.Len(t, forward, len(config))
	require.Len(t, reverse, len(config))

	for _, c := range config {
		assert.Equal(t, c.Code, reverse[forward[c.Code]])
	}
}

func TestExtractConstantsRoundTrip(t *testing.T) {
	t.Run("msg status", func(t *testing.T) { assertRoundTrip(t, domain.MsgStatusConfig) })
	t.Run("msg visibility", func(t *testing.T) { assertRoundTrip(t, domain.MsgVisibilityConfig) })
	t.Run("msg direction", func(t *testing.T) { assertRoundTrip(t, domain.MsgDirectionConfig) })
	t.Run("msg type", func(t *testing.T) { assertRoundTrip(t, domain.MsgTypeConfig) })
	t.Run("event unit", func(t *testing.T) { assertRoundTrip(t, domain.CampaignEventUnitConfig) })
	t.Run("channel event type", func(t *testing.T) { assertRoundTrip(t, domain.ChannelEventTypeConfig) })
	t.Run("value type", func(t *testing.T) { assertRoundTrip(t, domain.ValueTypeConfig) })
	t.Run("flow start status", func(t *testing.T) { assertRoundTrip(t, domain.FlowStartStatusConfig) })
	t.Run("exit type", func(t *testing.T) { assertRoundTrip(t, domain.ExitTypeConfig) })
	t.Run("step type", func(t *testing.T) { assertRoundTrip(t, domain.StepTypeConfig) })
}

func TestUnitChoices(t *testing.T) {
	assert.Equal(t, domain.UnitDays, unitChoices["days"])
	assert.Equal(t, domain.UnitDays, unitChoices["D"])
	assert.Equal(t, domain.UnitMinutes, unitChoices["minutes"])

	_, ok := unitChoices["fortnights"]
	assert.False(t, ok)
}

func TestAPICode(t *testing.T) {
	code := apiCode(msgStatuses, domain.MsgStatusErrored)
	require.NotNil(t, code)
	assert.Equal(t, "errored", *code)

	assert.Nil(t, apiCode(msgStatuses, domain.MsgStatus("X")))
}

func TestJSONType(t *testing.T) {
	tests := map[string]string{
		`"abc"`:    "str",
		`{"a": 1}`: "dict",
		`[1, 2]`:   "list",
		`true`:     "bool",
		`false`:    "bool",
		`null`:     "NoneType",
		`1.5`:      "float",
		`1e3`:      "float",
		`-12`:      "int",
	}
	for raw, want := range tests {
		assert.Equal(t, want, jsonType(json.RawMessage(raw)), raw)
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		raw  string
		want int
		ok   bool
	}{
		{`12`, 12, true},
		{`12.0`, 12, true},
		{`12.5`, 0, false},
		{`" 7 "`, 7, true},
		{`"seven"`, 0, false},
		{`true`, 0, false},
	}
	for _, tc := range tests {
		got, ok := asInt(json.RawMessage(tc.raw))
		assert.Equal(t, tc.ok, ok, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
		ok   bool
	}{
		{`true`, true, true},
		{`false`, false, true},
		{`"yes"`, true, true},
		{`"off"`, false, true},
		{`1`, true, true},
		{`0`, false, true},
		{`"maybe"`, false, false},
		{`2`, false, false},
		{`[]`, false, false},
	}
	for _, tc := range tests {
		got, ok := asBool(json.RawMessage(tc.raw))
		assert.Equal(t, tc.ok, ok, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDatetime(t *testing.T) {
	kigali := time.FixedZone("CAT", 2*60*60)
	ts := time.Date(2017, 3, 14, 10, 30, 15, 123456789, kigali)

	assert.Equal(t, "2017-03-14T08:30:15.123456Z", FormatDatetime(ts))
}

func TestFormatDecimal(t *testing.T) {
	assert.Equal(t, "1.5", FormatDecimal("1.500"))
	assert.Equal(t, "2", FormatDecimal("2.000"))
	assert.Equal(t, "100", FormatDecimal("100"))
	assert.Equal(t, "-0.25", FormatDecimal("-0.2500"))
}

func TestParseFieldValue(t *testing.T) {
	numeric := &ContactField{ID: 1, Key: "age", ValueType: ValueTypeNumber}
	v := ParseFieldValue(numeric, "32.50")
	assert.Equal(t, "32.50", v.StringValue)
	require.NotNil(t, v.DecimalValue)
	assert.Equal(t, "32.5", *v.DecimalValue)
	assert.Nil(t, v.DatetimeValue)

	text := &ContactField{ID: 2, Key: "nick", ValueType: ValueTypeText}
	v = ParseFieldValue(text, "Bobby")
	assert.Nil(t, v.DecimalValue)
	assert.Nil(t, v.LocationName)

	date := &ContactField{ID: 3, Key: "joined", ValueType: ValueTypeDatetime}
	v = ParseFieldValue(date, "2017-01-02")
	require.NotNil(t, v.DatetimeValue)
	assert.Equal(t, time.Date(2017, 1, 2, 0, 0, 0, 0, time.UTC), *v.DatetimeValue)

	state := &ContactField{ID: 4, Key: "state", ValueType: ValueTypeState}
	v = ParseFieldValue(state, " Kigali City ")
	require.NotNil(t, v.LocationName)
	assert.Equal(t, "Kigali City", *v.LocationName)
}

func TestSerializeFieldValue(t *testing.T) {
	numeric := &ContactField{Key: "age", ValueType: ValueTypeNumber}
	date := &ContactField{Key: "joined", ValueType: ValueTypeDatetime}
	text := &ContactField{Key: "nick", ValueType: ValueTypeText}
	ward := &ContactField{Key: "ward", ValueType: ValueTypeWard}

	assert.Nil(t, SerializeFieldValue(text, nil))

	assert.Equal(t, "32.5", *SerializeFieldValue(numeric, ParseFieldValue(numeric, "32.500")))
	assert.Nil(t, SerializeFieldValue(numeric, ParseFieldValue(numeric, "old")))

	assert.Equal(t, "2017-01-02T00:00:00.000000Z", *SerializeFieldValue(date, ParseFieldValue(date, "2017-01-02")))

	assert.Equal(t, "old", *SerializeFieldValue(text, ParseFieldValue(text, "old")))
	assert.Equal(t, "Nyarugenge", *SerializeFieldValue(ward, ParseFieldValue(ward, "Nyarugenge")))
}

func TestBroadcastTranslatedText(t *testing.T) {
	bcast := &Broadcast{
		Text:         "Hello",
		BaseLanguage: "eng",
		Translations: map[string]string{"eng": "Hello", "fra": "Bonjour", "kin": "Muraho"},
	}
	org := &Org{Languages: []string{"eng", "kin"}, PrimaryLanguage: "kin"}

	// contact language used when the org has it
	assert.Equal(t, "Muraho", bcast.TranslatedText(&Contact{Language: "kin"}, "", org))

	// french isn't an org language so the flow base language wins
	assert.Equal(t, "Bonjour", bcast.TranslatedText(&Contact{Language: "fra"}, "fra", org))
	assert.Equal(t, "Hello", bcast.TranslatedText(&Contact{Language: "fra"}, "", org))

	// then org primary language, then default text
	noBase := &Broadcast{Text: "Default", Translations: map[string]string{"kin": "Muraho"}}
	assert.Equal(t, "Muraho", noBase.TranslatedText(&Contact{}, "", org))
	assert.Equal(t, "Default", noBase.TranslatedText(&Contact{}, "", &Org{}))
}

func TestOrgHasLanguage(t *testing.T) {
	org := &Org{Languages: []string{"eng"}}
	assert.True(t, org.HasLanguage("eng"))
	assert.False(t, org.HasLanguage("fra"))
	assert.False(t, org.HasLanguage(""))
}

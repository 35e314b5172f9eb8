package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURN(t *testing.T) {
	tests := []struct {
		input    string
		expected URN
	}{
		{"tel:+250788123123", "tel:+250788123123"},
		{"tel:+250 788-123 (123)", "tel:+250788123123"},
		{"TEL:0788123123", "tel:0788123123"},
		{"twitter:@Bobby", "twitter:bobby"},
		{"twitterid:12345", "twitterid:12345"},
		{"mailto:Bob@Example.com", "mailto:bob@example.com"},
		{"ext:abc-123", "ext:abc-123"},
		{"telegram:98765", "telegram:98765"},
		{"facebook:ref:abc", "facebook:ref:abc"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			urn, err := ParseURN(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, urn)
		})
	}
}

func TestParseURNInvalid(t *testing.T) {
	for _, input := range []string{
		"",
		"12345",
		"xyz:12345",
		"tel:",
		"tel:abc",
		"twitter:way_too_long_for_a_handle",
		"telegram:abc",
		"mailto:nope",
		"ext:has space",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseURN(input)
			assert.ErrorIs(t, err, ErrInvalidURN)
		})
	}
}

func TestURNParts(t *testing.T) {
	urn := URN("tel:+250788123123")
	assert.Equal(t, "tel", urn.Scheme())
	assert.Equal(t, "+250788123123", urn.Path())
	assert.Equal(t, "tel:+250788123123", urn.String())
}

func TestContactURNLookup(t *testing.T) {
	c := &Contact{URNs: []*ContactURN{
		{ID: 1, Identity: "tel:+1206", Priority: 1000},
		{ID: 2, Identity: "twitter:bob", Priority: 999},
	}}

	assert.Equal(t, []URN{"tel:+1206", "twitter:bob"}, c.URNIdentities())
	assert.Equal(t, ContactURNID(2), c.URN("twitter:bob").ID)
	assert.Nil(t, c.URN("tel:+999"))
}

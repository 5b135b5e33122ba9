package currency

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfolio/portfolio-api/internal/apperrors"
)

func TestParse(t *testing.T) {
	t.Run("normalises case and whitespace", func(t *testing.T) {
		c, err := Parse(" eur ")
		require.NoError(t, err)
		assert.Equal(t, EUR, c)
		assert.Equal(t, "EUR", c.String())
	})

	invalid := []string{"", "EU", "EURO", "E1R", "€", "us$"}
	for _, in := range invalid {
		t.Run("rejects "+in, func(t *testing.T) {
			_, err := Parse(in)
			assert.ErrorIs(t, err, apperrors.ErrUnsupportedCurrency)
		})
	}
}

func TestParseList(t *testing.T) {
	codes, err := ParseList("USD, eur,,SEK")
	require.NoError(t, err)
	assert.Equal(t, []Code{USD, EUR, SEK}, codes)

	_, err = ParseList("USD,DOLLARS")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedCurrency)
}

func TestFromSymbol(t *testing.T) {
	c, ok := FromSymbol("€")
	assert.True(t, ok)
	assert.Equal(t, EUR, c)

	c, ok = FromSymbol("KR")
	assert.True(t, ok)
	assert.Equal(t, SEK, c)

	_, ok = FromSymbol("₿")
	assert.False(t, ok)
}

// WHY: codes travel through JSON request bodies; decoding must reject bad codes
// instead of producing an unvalidated value.
func TestCode_JSON(t *testing.T) {
	var body struct {
		Base Code `json:"base"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"base":"sek"}`), &body))
	assert.Equal(t, SEK, body.Base)

	out, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"base":"SEK"}`, string(out))

	err = json.Unmarshal([]byte(`{"base":"kronor"}`), &body)
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedCurrency)
}

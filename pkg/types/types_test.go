package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeGiftCard(t *testing.T) {
	assert.Nil(t, NormalizeGiftCard(nil))
	assert.Nil(t, NormalizeGiftCard(&GiftCard{From: "  ", To: "", Phone: "\t", Note: " "}))

	got := NormalizeGiftCard(&GiftCard{Note: "  happy eid  "})
	require.NotNil(t, got)
	assert.Equal(t, GiftCard{Note: "happy eid"}, *got)
}

func TestGiftCardValueAndScan(t *testing.T) {
	var nilCard *GiftCard
	val, err := nilCard.Value()
	require.NoError(t, err)
	assert.Nil(t, val)

	card := &GiftCard{From: "Aisha", Note: "enjoy"}
	val, err = card.Value()
	require.NoError(t, err)

	var decoded GiftCard
	require.NoError(t, decoded.Scan(val))
	assert.Equal(t, *card, decoded)
	assert.Error(t, decoded.Scan(42))
}

func TestOrderProductsScanAndClone(t *testing.T) {
	products := OrderProducts{{
		ProductID:    "p1",
		Quantity:     2,
		Name:         "Shayla",
		Price:        decimal.RequireFromString("5.5"),
		Measurements: json.RawMessage(`{"length":150}`),
		GiftCard:     &GiftCard{To: "Mariam"},
	}}

	val, err := products.Value()
	require.NoError(t, err)

	var decoded OrderProducts
	require.NoError(t, decoded.Scan(val))
	require.Len(t, decoded, 1)
	assert.True(t, decoded[0].Price.Equal(decimal.RequireFromString("5.5")))
	assert.JSONEq(t, `{"length":150}`, string(decoded[0].Measurements))

	clone := products.Clone()
	clone[0].GiftCard.To = "changed"
	clone[0].Measurements[0] = '['
	assert.Equal(t, "Mariam", products[0].GiftCard.To)
	assert.Equal(t, byte('{'), products[0].Measurements[0])
}

func TestQuantityUnmarshal(t *testing.T) {
	cases := map[string]int{`3`: 3, `"4"`: 4, `null`: 0, `""`: 0, `2.0`: 2}
	for raw, want := range cases {
		var q Quantity
		require.NoError(t, json.Unmarshal([]byte(raw), &q), raw)
		assert.Equal(t, Quantity(want), q, raw)
	}
	for _, raw := range []string{`"two"`, `1.5`, `true`} {
		var q Quantity
		assert.Error(t, json.Unmarshal([]byte(raw), &q), raw)
	}
}

func TestImageRefKeepsFirst(t *testing.T) {
	var payload struct {
		A ImageRef `json:"a"`
		B ImageRef `json:"b"`
		C ImageRef `json:"c"`
		D ImageRef `json:"d"`
	}
	raw := `{"a":"https://img/1.jpg","b":["https://img/2.jpg","https://img/3.jpg"],"c":[],"d":null}`
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	assert.Equal(t, ImageRef("https://img/1.jpg"), payload.A)
	assert.Equal(t, ImageRef("https://img/2.jpg"), payload.B)
	assert.Equal(t, ImageRef(""), payload.C)
	assert.Equal(t, ImageRef(""), payload.D)
}

func TestFlexStringAndBool(t *testing.T) {
	var s FlexString
	require.NoError(t, json.Unmarshal([]byte(`96891234`), &s))
	assert.Equal(t, FlexString("96891234"), s)
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &s))

	var b FlexBool
	require.NoError(t, json.Unmarshal([]byte(`"true"`), &b))
	assert.True(t, bool(b))
	require.NoError(t, json.Unmarshal([]byte(`false`), &b))
	assert.False(t, bool(b))
	require.NoError(t, json.Unmarshal([]byte(`""`), &b))
	assert.False(t, bool(b))
	assert.Error(t, json.Unmarshal([]byte(`"maybe"`), &b))
}

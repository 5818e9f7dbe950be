package invoicing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)

func TestLenientValues(t *testing.T) {
	var line LineItem
	raw := `{"Quantity":"1.5","UnitPrice":true,"TaxCode":"3","StockCodeId":12.0,"IsSerialItem":1,"IsLotItem":"yes","IsWarehouseItem":"nope"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &line))

	assert.Equal(t, "1.5", line.Quantity.String())
	assert.True(t, line.UnitPrice.IsZero())
	assert.Equal(t, Code(3), line.TaxCode)
	assert.Equal(t, int64(12), line.StockCodeID.Int64())
	assert.True(t, bool(line.IsSerialItem))
	assert.True(t, bool(line.IsLotItem))
	assert.False(t, bool(line.IsWarehouseItem))

	out, err := json.Marshal(line.Quantity)
	require.NoError(t, err)
	assert.Equal(t, "1.5", string(out))
}

func TestCode_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		raw  string
		want Code
	}{
		{`1`, 1},
		{`"5"`, 5},
		{`2.0`, 2},
		{`1.9`, 0},
		{`"0.5"`, 0},
		{`18446744073709551617`, 0},
		{`-9223372036854775809`, 0},
		{`9223372036854775807`, Code(9223372036854775807)},
		{`null`, 0},
		{`{}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var c Code
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &c))
			assert.Equal(t, tt.want, c)
		})
	}
}

func TestCode_OutOfRangeTaxCodeIsNotTaxed(t *testing.T) {
	var line LineItem
	require.NoError(t, json.Unmarshal([]byte(`{"Quantity":1,"UnitPrice":100,"TaxCode":18446744073709551617}`), &line))

	totals := CalculateTotals([]LineItem{line}, DefaultTaxPolicy())
	assert.True(t, totals.Tax.IsZero())
}

func TestText_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		raw  string
		want Text
	}{
		{`"Widget"`, "Widget"},
		{`123`, "123"},
		{`20240101`, "20240101"},
		{`true`, "true"},
		{`null`, ""},
		{`{"en":"Widget"}`, ""},
		{`["a"]`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var txt Text
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &txt))
			assert.Equal(t, tt.want, txt)
		})
	}
}

package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"platecost/internal/cost"
)

// decimalField accepts a JSON number or a numeric string. A comma is read as the decimal
// separator. null and "" leave the field unset. Values outside the stored column range are
// rejected while decoding.
type decimalField struct {
	Value decimal.Decimal
	Set   bool
}

func (f *decimalField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*f = decimalField{}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
		if raw == "" {
			return nil
		}
	}

	value, err := cost.ParseAmount(raw)
	if err != nil {
		return fmt.Errorf("invalid decimal %.40s: %w", data, err)
	}
	f.Value = value
	f.Set = true
	return nil
}

// Ptr returns nil when the field was not supplied.
func (f decimalField) Ptr() *decimal.Decimal {
	if !f.Set {
		return nil
	}
	value := f.Value
	return &value
}

// Whole reports the value as an integer when it has no fractional part.
func (f decimalField) Whole() (int64, bool) {
	if !f.Set || cost.CheckAmount(f.Value) != nil || !f.Value.Equal(f.Value.Truncate(0)) {
		return 0, false
	}
	if f.Value.GreaterThan(decimal.NewFromInt(math.MaxInt32)) || f.Value.LessThan(decimal.NewFromInt(math.MinInt32)) {
		return 0, false
	}
	return f.Value.IntPart(), true
}

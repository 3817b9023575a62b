package venue

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"

	"arbwatch/internal/domain/models"
)

// FieldDecoder reads the price from a top-level JSON field.
// When TypeField is set the message must also carry TypeField == TypeValue,
// which filters out subscription acks and other control frames.
type FieldDecoder struct {
	PriceField string
	TypeField  string
	TypeValue  string
}

// Decode never fails the caller: anything that is not a priced event yields ok == false.
func (d FieldDecoder) Decode(msg []byte) (float64, bool) {
	msg = bytes.TrimSpace(msg)
	if len(msg) == 0 || msg[0] != '{' {
		return 0, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(msg, &fields); err != nil {
		return 0, false
	}
	if d.TypeField != "" {
		var typ string
		if err := json.Unmarshal(fields[d.TypeField], &typ); err != nil || typ != d.TypeValue {
			return 0, false
		}
	}
	raw, ok := fields[d.PriceField]
	if !ok {
		return 0, false
	}
	return parsePrice(raw)
}

// parsePrice accepts both quoted decimals ("67012.34") and bare JSON numbers.
func parsePrice(raw json.RawMessage) (float64, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&n); err != nil {
			return 0, false
		}
		s = n.String()
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	p, _ := d.Float64()
	if !models.ValidPrice(p) {
		return 0, false
	}
	return p, true
}

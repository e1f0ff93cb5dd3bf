package quote

import (
	"encoding/json"
	"time"
)

// Instrument maps a bundle key to its exchange-qualified Kite symbol.
type Instrument struct {
	Key    string
	Symbol string
}

// Instruments is the fixed set served by the dashboard, in display order.
var Instruments = []Instrument{
	{Key: "nifty50", Symbol: "NSE:NIFTY 50"},
	{Key: "banknifty", Symbol: "NSE:NIFTY BANK"},
	{Key: "niftymidcap", Symbol: "NSE:NIFTY MIDCAP 50"},
	{Key: "sensex", Symbol: "BSE:SENSEX"},
}

// Symbols returns the Kite symbols of Instruments.
func Symbols() []string {
	out := make([]string, 0, len(Instruments))
	for _, in := range Instruments {
		out = append(out, in.Symbol)
	}
	return out
}

// Bundle holds one entry per instrument key. A nil entry means the instrument
// was absent or malformed in the vendor payload.
type Bundle map[string]*CanonicalQuote

// Missing lists the keys whose entry is nil, in Instruments order.
func (b Bundle) Missing() []string {
	var out []string
	for _, in := range Instruments {
		if b[in.Key] == nil {
			out = append(out, in.Key)
		}
	}
	return out
}

// AssembleBundle decodes and normalizes every instrument independently.
// Keys are always present in the result; failures become nil entries.
func AssembleBundle(data map[string]json.RawMessage, now time.Time) Bundle {
	bundle := make(Bundle, len(Instruments))
	for _, in := range Instruments {
		raw, err := Decode(data[in.Symbol])
		if err != nil {
			bundle[in.Key] = nil
			continue
		}
		bundle[in.Key] = Normalize(raw, now)
	}
	return bundle
}

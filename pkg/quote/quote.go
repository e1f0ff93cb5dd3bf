package quote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// OHLC is the vendor's open/high/low/close record. Any field may be absent.
type OHLC struct {
	Open  *float64 `json:"open,omitempty"`
	High  *float64 `json:"high,omitempty"`
	Low   *float64 `json:"low,omitempty"`
	Close *float64 `json:"close,omitempty"`
}

// RawQuote is the subset of a Kite quote record the normalizer reads.
type RawQuote struct {
	LastPrice *float64 `json:"last_price,omitempty"`
	OHLC      *OHLC    `json:"ohlc,omitempty"`
}

// CanonicalQuote is the shape served to the dashboard.
type CanonicalQuote struct {
	Value         float64   `json:"value"`
	Change        float64   `json:"change"`
	PercentChange float64   `json:"percentChange"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	PrevClose     float64   `json:"prevClose"`
	Timestamp     time.Time `json:"timestamp"`
}

// Decode parses one instrument record. A JSON null yields (nil, nil).
func Decode(data json.RawMessage) (*RawQuote, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var raw RawQuote
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	return &raw, nil
}

// Normalize converts a raw vendor record into a CanonicalQuote stamped with now.
// It returns nil when raw is nil, carries no last price, or produces a
// non-finite value. It never panics.
func Normalize(raw *RawQuote, now time.Time) (q *CanonicalQuote) {
	defer func() {
		if r := recover(); r != nil {
			q = nil
		}
	}()

	if raw == nil || raw.LastPrice == nil {
		return nil
	}

	lastPrice := *raw.LastPrice
	var ohlc OHLC
	if raw.OHLC != nil {
		ohlc = *raw.OHLC
	}

	prevClose := orDefault(ohlc.Close, lastPrice)
	change := lastPrice - prevClose

	percentChange := 0.0
	if prevClose != 0 {
		percentChange = change / prevClose * 100
	}

	out := &CanonicalQuote{
		Value:         lastPrice,
		Change:        change,
		PercentChange: percentChange,
		Open:          orDefault(ohlc.Open, lastPrice),
		High:          orDefault(ohlc.High, lastPrice),
		Low:           orDefault(ohlc.Low, lastPrice),
		PrevClose:     prevClose,
		Timestamp:     now.UTC(),
	}
	if !out.finite() {
		return nil
	}
	return out
}

func (q *CanonicalQuote) finite() bool {
	for _, v := range []float64{q.Value, q.Change, q.PercentChange, q.Open, q.High, q.Low, q.PrevClose} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

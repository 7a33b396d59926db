package bpc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestClassify(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name    string
		elapsed time.Duration
		want    Symbol
	}{
		{"glitch", 5 * time.Millisecond, Symbol0},
		{"100ms", 100 * time.Millisecond, Symbol0},
		{"200ms", 200 * time.Millisecond, Symbol1},
		{"300ms", 300 * time.Millisecond, Symbol2},
		{"400ms", 400 * time.Millisecond, Symbol3},
		{"max range", th.MaxRange, Symbol3},
		{"just above max range", th.MaxRange + time.Microsecond, SymbolSpace},
		{"space after 100ms", 900 * time.Millisecond, SymbolSpace},
		{"space range", th.SpaceRange, SymbolSpace},
		{"marker 1.6s", 1600 * time.Millisecond, SymbolMarker},
		{"marker 1.9s", 1900 * time.Millisecond, SymbolMarker},
		{"max start range", th.MaxStartRange, SymbolMarker},
		{"dropout", th.MaxStartRange + time.Microsecond, SymbolInvalid},
		{"negative", -time.Millisecond, SymbolInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, th.Classify(tt.elapsed))
		})
	}
}

func TestClassify_DataBand(t *testing.T) {
	th := DefaultThresholds()

	rapid.Check(t, func(t *rapid.T) {
		elapsed := time.Duration(rapid.Int64Range(0, int64(th.MaxRange)).Draw(t, "elapsed"))

		s := th.Classify(elapsed)
		assert.Truef(t, s.IsData(), "%v classified as %v", elapsed, s)
	})
}

func TestClassify_MarkerBand(t *testing.T) {
	th := DefaultThresholds()

	rapid.Check(t, func(t *rapid.T) {
		elapsed := time.Duration(rapid.Int64Range(int64(th.SpaceRange)+1, int64(th.MaxStartRange)).Draw(t, "elapsed"))

		assert.Equal(t, SymbolMarker, th.Classify(elapsed))
	})
}

func TestClassify_NominalWidths(t *testing.T) {
	th := DefaultThresholds()

	for _, s := range []Symbol{Symbol0, Symbol1, Symbol2, Symbol3} {
		assert.Equal(t, s, th.Classify(s.Width()))
		// the rest of the second is a space
		assert.Equal(t, SymbolSpace, th.Classify(time.Second-s.Width()))
		// the gap after the last pulse of a frame is a marker
		assert.Equal(t, SymbolMarker, th.Classify(2*time.Second-s.Width()))
	}
}

func TestIsSecond(t *testing.T) {
	th := DefaultThresholds()

	assert.True(t, th.isSecond(200*time.Millisecond, 800*time.Millisecond))
	assert.True(t, th.isSecond(300*time.Millisecond, 850*time.Millisecond))
	assert.False(t, th.isSecond(100*time.Millisecond, 600*time.Millisecond))
	assert.False(t, th.isSecond(400*time.Millisecond, 900*time.Millisecond))
}

func TestSymbolString(t *testing.T) {
	assert.Equal(t, "data(2)", Symbol2.String())
	assert.Equal(t, "space", SymbolSpace.String())
	assert.Equal(t, "marker", SymbolMarker.String())
	assert.Equal(t, "invalid", SymbolInvalid.String())
	assert.Equal(t, uint8(0), SymbolMarker.Value())
}

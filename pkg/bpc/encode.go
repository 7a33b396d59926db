package bpc

import "time"

// Encode builds the frame broadcast for t.
// t is converted to the zone hours east of UTC before encoding.
// Years outside 2000..2127 can't be represented and are wrapped.
func Encode(t time.Time, zone int) [FrameLength]Symbol {
	var f [FrameLength]Symbol

	t = t.In(time.FixedZone("", zone*3600))

	p1 := uint(t.Second() / 20)
	hour := uint(t.Hour() % 12)
	minute := uint(t.Minute())
	week := uint(t.Weekday())
	if week == 0 {
		week = 7
	}
	day := uint(t.Day())
	month := uint(t.Month())
	year := uint(t.Year()-2000) & 0x7f

	put(f[idxP1:idxP1+1], p1)
	put(f[idxP2:idxP2+1], 0)
	put(f[idxHour:idxHour+2], hour)
	put(f[idxMinute:idxMinute+3], minute)
	put(f[idxWeek:idxWeek+2], week)

	p3 := parity(p1, 0, hour, minute, week)
	if t.Hour() >= 12 {
		p3 |= 2
	}
	put(f[idxP3:idxP3+1], p3)

	put(f[idxDay:idxDay+3], day)
	put(f[idxMonth:idxMonth+2], month)
	put(f[idxYear:idxYear+3], year&0x3f)

	p4 := parity(day, month, year&0x3f)
	if year&0x40 != 0 {
		p4 |= 2
	}
	put(f[idxP4:idxP4+1], p4)

	return f
}

// put splits v into len(s) data symbols, most significant first.
func put(s []Symbol, v uint) {
	for i := len(s) - 1; i >= 0; i-- {
		s[i] = Symbol(v & 3)
		v >>= 2
	}
}

// Width returns the nominal pulse width of a data symbol.
func (s Symbol) Width() time.Duration {
	return time.Duration(s.Value()+1) * pulseUnit
}

// Edges returns the edge timestamps of one frame whose second 0 starts at start.
// Second 0 carries no pulse, every following second starts with a pulse whose
// width encodes one symbol. Each second contributes a leading and a trailing edge.
func Edges(frame [FrameLength]Symbol, start time.Duration) []time.Duration {
	edges := make([]time.Duration, 0, 2*FrameLength)
	for i, s := range frame {
		lead := start + time.Duration(i+1)*second
		edges = append(edges, lead, lead+s.Width())
	}
	return edges
}

package bpc

import (
	"math/bits"
	"time"
)

// Status is the outcome of decoding one frame.
type Status uint8

const (
	// StatusOK indicates a complete frame with matching parity.
	StatusOK Status = 0x00
	// StatusParityError indicates a complete frame with at least one parity mismatch.
	StatusParityError Status = 0x01
	// StatusFrameInvalid indicates a frame that is too short, too long or malformed.
	StatusFrameInvalid Status = 0x02
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusParityError:
		return "parity error"
	case StatusFrameInvalid:
		return "frame invalid"
	default:
		return "unknown"
	}
}

// MarshalText writes the status as its name, e.g. for json payloads.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FrameLength is the number of data symbols in one frame.
const FrameLength = 19

// FramePeriod is the distance between two frame markers.
const FramePeriod = 20 * time.Second

// frame layout, index of the first symbol of each field
const (
	idxP1     = 0
	idxP2     = 1
	idxHour   = 2
	idxMinute = 4
	idxWeek   = 7
	idxP3     = 9
	idxDay    = 10
	idxMonth  = 13
	idxYear   = 15
	idxP4     = 18
)

// Result is the decoded content of one frame.
type Result struct {
	Status Status `json:"status"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Day    int    `json:"day"`
	// Week is the day of week, 0 is Sunday.
	Week   int `json:"week"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
	// Diff is the signed deviation of the closing frame marker from the time expected by the previous marker.
	// json carries it as time.Duration, in ns.
	Diff time.Duration `json:"diff"`
}

// Time returns the decoded calendar fields as time.Time.
// BPC broadcasts local time of a zone hours east of UTC (Beijing time is 8).
func (r Result) Time(zone int) time.Time {
	loc := time.FixedZone("", zone*3600)
	return time.Date(r.Year, time.Month(r.Month), r.Day, r.Hour, r.Minute, r.Second, 0, loc)
}

// Decode extracts the calendar fields of a complete frame.
// A frame with a length other than FrameLength or with a non data symbol is
// returned as StatusFrameInvalid without extracting any field.
// On a parity mismatch all fields are still populated.
func Decode(frame []Symbol) Result {
	if len(frame) != FrameLength {
		return Result{Status: StatusFrameInvalid}
	}
	for _, s := range frame {
		if !s.IsData() {
			return Result{Status: StatusFrameInvalid}
		}
	}

	var r Result
	p1 := frame[idxP1].Value()
	p2 := frame[idxP2].Value()
	p3 := frame[idxP3].Value()
	p4 := frame[idxP4].Value()

	hour := field(frame[idxHour : idxHour+2])
	minute := field(frame[idxMinute : idxMinute+3])
	week := field(frame[idxWeek : idxWeek+2])
	day := field(frame[idxDay : idxDay+3])
	month := field(frame[idxMonth : idxMonth+2])
	year := field(frame[idxYear : idxYear+3])

	parityOK := parity(uint(p1), uint(p2), hour, minute, week) == uint(p3&1) &&
		parity(day, month, year) == uint(p4&1)

	r.Hour = int(hour)
	if p3&2 != 0 {
		r.Hour += 12
	}
	r.Minute = int(minute)
	r.Week = int(week)
	if r.Week == 7 {
		r.Week = 0
	}
	r.Day = int(day)
	r.Month = int(month)
	r.Year = int(year)
	if p4&2 != 0 {
		r.Year |= 1 << 6
	}
	r.Year += 2000

	switch p1 {
	case 0:
		r.Second = 19
	case 1:
		r.Second = 39
	case 2:
		r.Second = 59
	}

	switch {
	case !parityOK:
		r.Status = StatusParityError
	case p1 == 3:
		return Result{Status: StatusFrameInvalid}
	default:
		r.Status = StatusOK
	}
	return r
}

// field joins data symbols, most significant first.
func field(s []Symbol) uint {
	var v uint
	for _, d := range s {
		v = v<<2 | uint(d.Value())
	}
	return v
}

// parity returns 1 if the count of set bits of all values is odd.
func parity(values ...uint) uint {
	n := 0
	for _, v := range values {
		n += bits.OnesCount(v)
	}
	return uint(n & 1)
}

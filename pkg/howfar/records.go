package howfar

import (
	"time"

	"github.com/ssargent/howfar/pkg/codec"
	"github.com/ssargent/howfar/pkg/ringfs"
)

// Version2024091501 is the first measurement record format
const Version2024091501 uint32 = 2024091501

// TimestampFormat renders record times without a zone offset
const TimestampFormat = "2006-01-02T15:04:05"

// Record2024091501 is <timestamp u32, als_code u16, tof_distance u16>
var Record2024091501 = codec.MustLayout("record_2024091501",
	codec.Uint32("timestamp"),
	codec.Uint16("als_code"),
	codec.Uint16("tof_distance"),
)

// Columns2024091501 are the output columns of version 2024091501
var Columns2024091501 = []string{"datetime", "timestamp", "alx_lx", "tof_distance_mm"}

// Lux converts an OPT3004 result register (4 bit exponent, 12 bit
// mantissa) into lux. See the OPT3004 datasheet, page 21.
func Lux(code uint16) float64 {
	mantissa := uint64(code & 0x0FFF)
	exponent := uint(code >> 12)
	return float64(mantissa<<exponent) * 0.01
}

// NewVersionRegistry returns every known record version. Record times are
// rendered in loc, or in the local zone when loc is nil. Add new versions here
// whenever the firmware introduces one.
func NewVersionRegistry(loc *time.Location) *ringfs.Registry {
	if loc == nil {
		loc = time.Local
	}
	return ringfs.MustRegistry(
		ringfs.Decoder{
			Version:   Version2024091501,
			Layout:    Record2024091501,
			Columns:   Columns2024091501,
			Interpret: interpret2024091501(loc),
		},
	)
}

func interpret2024091501(loc *time.Location) ringfs.InterpretFunc {
	return func(rec *codec.Record) ([]any, error) {
		ts, err := rec.Uint("timestamp")
		if err != nil {
			return nil, err
		}
		code, err := rec.Uint("als_code")
		if err != nil {
			return nil, err
		}
		distance, err := rec.Uint("tof_distance")
		if err != nil {
			return nil, err
		}
		return []any{
			time.Unix(int64(ts), 0).In(loc).Format(TimestampFormat),
			ts,
			Lux(uint16(code)),
			distance,
		}, nil
	}
}

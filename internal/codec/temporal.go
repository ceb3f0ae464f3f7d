package codec

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DecodeDate decodes a DATE value: 0 bytes (zero date) or 4 bytes
// (year uint16 LE, month, day), per spec.md §4.5.
func DecodeDate(raw []byte) (time.Time, error) {
	if len(raw) == 0 {
		return time.Time{}, nil
	}
	if len(raw) != 4 {
		return time.Time{}, errors.Errorf("codec: DATE must be 0 or 4 bytes, got %d", len(raw))
	}
	year := int(uint16(raw[0]) | uint16(raw[1])<<8)
	return time.Date(year, time.Month(raw[2]), int(raw[3]), 0, 0, 0, 0, time.UTC), nil
}

// EncodeDate renders t as the 4-byte DATE wire form, or an empty slice for
// the zero value.
func EncodeDate(t time.Time) []byte {
	if t.IsZero() {
		return nil
	}
	y := uint16(t.Year())
	return []byte{byte(y), byte(y >> 8), byte(t.Month()), byte(t.Day())}
}

// DecodeDateTime decodes DATETIME/TIMESTAMP: 0 (zero), 4 (date only),
// 7 (+ time), or 11 (+ microseconds) bytes, per spec.md §4.5.
func DecodeDateTime(raw []byte) (time.Time, error) {
	switch len(raw) {
	case 0:
		return time.Time{}, nil
	case 4, 7, 11:
	default:
		return time.Time{}, errors.Errorf("codec: DATETIME must be 0, 4, 7, or 11 bytes, got %d", len(raw))
	}
	year := int(uint16(raw[0]) | uint16(raw[1])<<8)
	month, day := time.Month(raw[2]), int(raw[3])
	var hour, minute, second, micro int
	if len(raw) >= 7 {
		hour, minute, second = int(raw[4]), int(raw[5]), int(raw[6])
	}
	if len(raw) == 11 {
		micro = int(uint32(raw[7]) | uint32(raw[8])<<8 | uint32(raw[9])<<16 | uint32(raw[10])<<24)
	}
	return time.Date(year, month, day, hour, minute, second, micro*1000, time.UTC), nil
}

// EncodeDateTime renders t as the shortest DATETIME wire form that
// preserves its fields (0, 4, 7, or 11 bytes).
func EncodeDateTime(t time.Time) []byte {
	if t.IsZero() {
		return nil
	}
	y := uint16(t.Year())
	buf := []byte{byte(y), byte(y >> 8), byte(t.Month()), byte(t.Day())}
	h, m, s := t.Hour(), t.Minute(), t.Second()
	micro := t.Nanosecond() / 1000
	if h == 0 && m == 0 && s == 0 && micro == 0 {
		return buf
	}
	buf = append(buf, byte(h), byte(m), byte(s))
	if micro == 0 {
		return buf
	}
	u := uint32(micro)
	return append(buf, byte(u), byte(u>>8), byte(u>>16), byte(u>>24))
}

// Duration is the decoded form of a MySQL TIME value: a signed offset from
// zero, which MySQL allows to range beyond 24 hours (it is an interval, not
// a time-of-day), so it is represented as a sign plus days/h/m/s/micro
// rather than forced into time.Duration's signed-nanosecond range.
type Duration struct {
	Negative     bool
	Days         uint32
	Hours        uint8
	Minutes      uint8
	Seconds      uint8
	Microseconds uint32
}

// DecodeTime decodes TIME: 0 (zero), 8 (whole seconds), or 12
// (+ microseconds) bytes, per spec.md §4.5.
func DecodeTime(raw []byte) (Duration, error) {
	switch len(raw) {
	case 0:
		return Duration{}, nil
	case 8, 12:
	default:
		return Duration{}, errors.Errorf("codec: TIME must be 0, 8, or 12 bytes, got %d", len(raw))
	}
	d := Duration{
		Negative: raw[0] != 0,
		Days:     uint32(raw[1]) | uint32(raw[2])<<8 | uint32(raw[3])<<16 | uint32(raw[4])<<24,
		Hours:    raw[5],
		Minutes:  raw[6],
		Seconds:  raw[7],
	}
	if len(raw) == 12 {
		d.Microseconds = uint32(raw[8]) | uint32(raw[9])<<8 | uint32(raw[10])<<16 | uint32(raw[11])<<24
	}
	return d, nil
}

// EncodeTime renders d as the shortest TIME wire form.
func EncodeTime(d Duration) []byte {
	if !d.Negative && d.Days == 0 && d.Hours == 0 && d.Minutes == 0 && d.Seconds == 0 && d.Microseconds == 0 {
		return nil
	}
	neg := byte(0)
	if d.Negative {
		neg = 1
	}
	buf := []byte{neg, byte(d.Days), byte(d.Days >> 8), byte(d.Days >> 16), byte(d.Days >> 24), d.Hours, d.Minutes, d.Seconds}
	if d.Microseconds == 0 {
		return buf
	}
	u := d.Microseconds
	return append(buf, byte(u), byte(u>>8), byte(u>>16), byte(u>>24))
}

// AsGoDuration converts d to a time.Duration, for callers that don't need
// the beyond-24h range MySQL TIME permits (it will overflow/wrap if they
// do; callers working with interval-style TIME values should use the
// Duration fields directly).
func (d Duration) AsGoDuration() time.Duration {
	total := time.Duration(d.Days)*24*time.Hour +
		time.Duration(d.Hours)*time.Hour +
		time.Duration(d.Minutes)*time.Minute +
		time.Duration(d.Seconds)*time.Second +
		time.Duration(d.Microseconds)*time.Microsecond
	if d.Negative {
		return -total
	}
	return total
}

// DecodeYear decodes a binary-protocol YEAR column, a 2-byte
// little-endian integer. The text protocol sends YEAR as ASCII digits,
// which DecodeTextValue parses as an integer instead of calling this.
func DecodeYear(raw []byte) (int, error) {
	if len(raw) != 2 {
		return 0, errors.Errorf("codec: YEAR must be 2 bytes, got %d", len(raw))
	}
	return int(uint16(raw[0]) | uint16(raw[1])<<8), nil
}

// EncodeYear renders year as the 2-byte YEAR wire form.
func EncodeYear(year int) []byte {
	y := uint16(year)
	return []byte{byte(y), byte(y >> 8)}
}

// ParseDateTimeText parses the text-protocol rendering of DATE, DATETIME,
// or TIMESTAMP columns: "YYYY-MM-DD" or "YYYY-MM-DD HH:MM:SS[.ffffff]",
// or the all-zero "0000-00-00" MySQL uses for its zero value.
func ParseDateTimeText(raw []byte) (time.Time, error) {
	s := string(raw)
	if s == "" || strings.HasPrefix(s, "0000-00-00") {
		return time.Time{}, nil
	}
	layouts := []string{"2006-01-02 15:04:05.999999", "2006-01-02 15:04:05", "2006-01-02"}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, errors.Wrapf(lastErr, "codec: parse temporal text value %q", s)
}

// FormatDateTimeText renders t in MySQL's text-protocol DATE/DATETIME
// literal form, for building COM_QUERY statements.
func FormatDateTimeText(t time.Time, withTime bool) string {
	if t.IsZero() {
		if withTime {
			return "0000-00-00 00:00:00"
		}
		return "0000-00-00"
	}
	if !withTime {
		return t.Format("2006-01-02")
	}
	if t.Nanosecond() == 0 {
		return t.Format("2006-01-02 15:04:05")
	}
	return t.Format("2006-01-02 15:04:05.000000")
}

// ParseTimeText parses the text-protocol rendering of a TIME column:
// "[-]HHH:MM:SS[.ffffff]", where the hour field may exceed 24 and carry
// into Days since MySQL TIME is an interval, not a time-of-day.
func ParseTimeText(raw []byte) (Duration, error) {
	s := string(raw)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var micro int
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		frac := s[dot+1:]
		for len(frac) < 6 {
			frac += "0"
		}
		n, err := strconv.Atoi(frac[:6])
		if err != nil {
			return Duration{}, errors.Wrapf(err, "codec: parse TIME fraction %q", s)
		}
		micro = n
		s = s[:dot]
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Duration{}, errors.Errorf("codec: malformed TIME text value %q", s)
	}
	totalHours, err := strconv.Atoi(parts[0])
	if err != nil {
		return Duration{}, errors.Wrapf(err, "codec: parse TIME hours %q", s)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return Duration{}, errors.Wrapf(err, "codec: parse TIME minutes %q", s)
	}
	seconds, err := strconv.Atoi(parts[2])
	if err != nil {
		return Duration{}, errors.Wrapf(err, "codec: parse TIME seconds %q", s)
	}
	return Duration{
		Negative:     neg,
		Days:         uint32(totalHours / 24),
		Hours:        uint8(totalHours % 24),
		Minutes:      uint8(minutes),
		Seconds:      uint8(seconds),
		Microseconds: uint32(micro),
	}, nil
}

// FormatTimeText renders d in MySQL's text-protocol TIME literal form.
func FormatTimeText(d Duration) string {
	sign := ""
	if d.Negative {
		sign = "-"
	}
	totalHours := d.Days*24 + uint32(d.Hours)
	base := strconv.Itoa(int(totalHours)) + ":" +
		pad2(int(d.Minutes)) + ":" + pad2(int(d.Seconds))
	if d.Microseconds == 0 {
		return sign + base
	}
	frac := strconv.Itoa(int(d.Microseconds))
	for len(frac) < 6 {
		frac = "0" + frac
	}
	return sign + base + "." + frac
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

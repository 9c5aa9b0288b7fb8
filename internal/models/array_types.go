package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

// SeatSet is a set of 1-based seat numbers stored as INTEGER[] in PostgreSQL.
// It is kept sorted and free of duplicates by NewSeatSet.
type SeatSet []int

// NewSeatSet returns a sorted, de-duplicated copy of seats
func NewSeatSet(seats ...int) SeatSet {
	out := make(SeatSet, 0, len(seats))
	seen := make(map[int]struct{}, len(seats))
	for _, s := range seats {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}

// Contains reports whether seat is in the set
func (s SeatSet) Contains(seat int) bool {
	i := sort.SearchInts(s, seat)
	return i < len(s) && s[i] == seat
}

// Union returns the seats in s or other
func (s SeatSet) Union(other SeatSet) SeatSet {
	merged := make([]int, 0, len(s)+len(other))
	merged = append(merged, s...)
	merged = append(merged, other...)
	return NewSeatSet(merged...)
}

// Intersect returns the seats in both s and other
func (s SeatSet) Intersect(other SeatSet) SeatSet {
	out := SeatSet{}
	for _, seat := range s {
		if other.Contains(seat) {
			out = append(out, seat)
		}
	}
	return out
}

// Minus returns the seats in s that are not in other
func (s SeatSet) Minus(other SeatSet) SeatSet {
	out := SeatSet{}
	for _, seat := range s {
		if !other.Contains(seat) {
			out = append(out, seat)
		}
	}
	return out
}

// Equal reports whether both sets hold the same seats
func (s SeatSet) Equal(other SeatSet) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Value implements the driver.Valuer interface. A nil set is written as an
// empty array because the seat columns are NOT NULL.
func (s SeatSet) Value() (driver.Value, error) {
	arr := make(pq.Int64Array, len(s))
	for i, v := range s {
		arr[i] = int64(v)
	}
	return arr.Value()
}

// Scan implements the sql.Scanner interface
func (s *SeatSet) Scan(src interface{}) error {
	if src == nil {
		*s = SeatSet{}
		return nil
	}
	var arr pq.Int64Array
	if err := arr.Scan(src); err != nil {
		return err
	}
	seats := make([]int, len(arr))
	for i, v := range arr {
		seats[i] = int(v)
	}
	*s = NewSeatSet(seats...)
	return nil
}

// MarshalJSON always renders an array, never null
func (s SeatSet) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]int(s))
}

// UnmarshalJSON restores the sorted set form
func (s *SeatSet) UnmarshalJSON(data []byte) error {
	var seats []int
	if err := json.Unmarshal(data, &seats); err != nil {
		return err
	}
	*s = NewSeatSet(seats...)
	return nil
}

// SeatList is the request-side form of a seat selection. Clients send seat
// numbers as a JSON array of integers, an array of decimal strings, or a
// comma separated string ("3,4,5"); all three decode to the same sorted set.
type SeatList []int

// UnmarshalJSON implements json.Unmarshaler
func (l *SeatList) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var parts []string
	switch v := raw.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
	case []interface{}:
		for _, item := range v {
			switch e := item.(type) {
			case float64:
				if e != float64(int(e)) {
					return fmt.Errorf("seat number %v is not an integer", e)
				}
				parts = append(parts, strconv.Itoa(int(e)))
			case string:
				parts = append(parts, strings.TrimSpace(e))
			default:
				return fmt.Errorf("seat number %v has unsupported type %T", e, e)
			}
		}
	default:
		return fmt.Errorf("seat numbers must be an array or a comma separated string")
	}

	seats := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid seat number %q", p)
		}
		if n <= 0 {
			return fmt.Errorf("seat number %d must be positive", n)
		}
		seats = append(seats, n)
	}
	*l = SeatList(NewSeatSet(seats...))
	return nil
}

// Set converts the list to a SeatSet
func (l SeatList) Set() SeatSet {
	return NewSeatSet(l...)
}

// LayoutIndexes is a bus seat layout: 0-based cell indices on the seat grid,
// stored as INTEGER[].
type LayoutIndexes []int

// Value implements the driver.Valuer interface
func (a LayoutIndexes) Value() (driver.Value, error) {
	return SeatSet(a).Value()
}

// Scan implements the sql.Scanner interface
func (a *LayoutIndexes) Scan(src interface{}) error {
	var s SeatSet
	if err := s.Scan(src); err != nil {
		return err
	}
	*a = LayoutIndexes(s)
	return nil
}

// DateLayout is the wire and storage format of a calendar date
const DateLayout = "2006-01-02"

// Date is a calendar day (DATE column) rendered as YYYY-MM-DD
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in UTC
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements the driver.Valuer interface
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements the sql.Scanner interface
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

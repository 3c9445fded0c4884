package leaderboard

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/goccy/go-json"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// Score is an integer score, or NaN when the submitted value could not be parsed.
// NaN scores are stored as the BSON double NaN and rendered as JSON null.
type Score struct {
	value int64
	valid bool
}

// IntScore returns a valid score holding v
func IntScore(v int64) Score {
	return Score{value: v, valid: true}
}

// NaN returns the not-a-number score
func NaN() Score {
	return Score{}
}

// Int64 returns the integer value and whether the score is a number
func (s Score) Int64() (int64, bool) {
	return s.value, s.valid
}

// IsNaN reports whether the score failed to parse
func (s Score) IsNaN() bool {
	return !s.valid
}

func (s Score) String() string {
	if !s.valid {
		return "NaN"
	}
	return strconv.FormatInt(s.value, 10)
}

// Compare orders scores the way MongoDB sorts them: NaN below every number.
func Compare(a, b Score) int {
	switch {
	case !a.valid && !b.valid:
		return 0
	case !a.valid:
		return -1
	case !b.valid:
		return 1
	case a.value < b.value:
		return -1
	case a.value > b.value:
		return 1
	}
	return 0
}

// MarshalJSON renders NaN as null, as JSON.stringify does
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.valid {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, s.value, 10), nil
}

// UnmarshalJSON accepts a number or null
func (s *Score) UnmarshalJSON(data []byte) error {
	var n *json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid score: %w", err)
	}
	if n == nil {
		*s = NaN()
		return nil
	}
	if v, err := n.Int64(); err == nil {
		*s = IntScore(v)
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("invalid score %q: %w", n.String(), err)
	}
	*s = fromFloat(f)
	return nil
}

// MarshalBSONValue stores numbers as int64 and NaN as a double
func (s Score) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if !s.valid {
		return bsontype.Double, bsoncore.AppendDouble(nil, math.NaN()), nil
	}
	return bsontype.Int64, bsoncore.AppendInt64(nil, s.value), nil
}

// UnmarshalBSONValue accepts any numeric BSON type written by this service or by hand
func (s *Score) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.Int32:
		v, ok := raw.Int32OK()
		if !ok {
			return fmt.Errorf("malformed int32 score")
		}
		*s = IntScore(int64(v))
	case bsontype.Int64:
		v, ok := raw.Int64OK()
		if !ok {
			return fmt.Errorf("malformed int64 score")
		}
		*s = IntScore(v)
	case bsontype.Double:
		v, ok := raw.DoubleOK()
		if !ok {
			return fmt.Errorf("malformed double score")
		}
		*s = fromFloat(v)
	case bsontype.Null, bsontype.Undefined:
		*s = NaN()
	default:
		return fmt.Errorf("unsupported score type %s", t)
	}
	return nil
}

// ParseScore converts the raw JSON "score" field of a submission the way
// JavaScript's parseInt does. Strings are parsed directly, numbers through their
// JavaScript string form. Anything else, and anything outside int64, is NaN.
func ParseScore(raw []byte) Score {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return NaN()
	}

	switch trimmed[0] {
	case '"':
		var str string
		if err := json.Unmarshal([]byte(trimmed), &str); err != nil {
			return NaN()
		}
		return ParseInt(str)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return NaN()
		}
		return parseNumber(f)
	}
	return NaN()
}

// ParseInt implements parseInt(str) with an implicit radix.
func ParseInt(str string) Score {
	str = strings.TrimLeftFunc(str, isSpace)

	sign := ""
	if str != "" && (str[0] == '-' || str[0] == '+') {
		if str[0] == '-' {
			sign = "-"
		}
		str = str[1:]
	}

	base := 10
	if len(str) >= 2 && str[0] == '0' && (str[1] == 'x' || str[1] == 'X') {
		base = 16
		str = str[2:]
	}

	end := 0
	for end < len(str) && isDigit(str[end], base) {
		end++
	}
	if end == 0 {
		return NaN()
	}

	v, err := strconv.ParseInt(sign+str[:end], base, 64)
	if err != nil {
		return NaN()
	}
	return IntScore(v)
}

// parseNumber mirrors parseInt(Number): the number is first formatted like
// Number.prototype.toString, which switches to exponent form outside [1e-6, 1e21).
func parseNumber(f float64) Score {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return NaN()
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return ParseInt(strconv.FormatFloat(f, 'e', -1, 64))
	}
	return fromFloat(f)
}

func fromFloat(f float64) Score {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return NaN()
	}
	t := math.Trunc(f)
	if t < math.MinInt64 || t >= math.MaxInt64 {
		return NaN()
	}
	return IntScore(int64(t))
}

func isDigit(c byte, base int) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case base == 16 && c >= 'a' && c <= 'f':
		return true
	case base == 16 && c >= 'A' && c <= 'F':
		return true
	}
	return false
}

// isSpace reports ECMAScript WhiteSpace and LineTerminator code points.
// U+0085 is not one of them.
func isSpace(r rune) bool {
	switch r {
	case '\t', '\v', '\f', '\n', '\r', '\uFEFF', '\u2028', '\u2029':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

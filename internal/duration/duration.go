// Package duration turns loosely typed video durations into display strings.
//
// Stored durations come from several places: numeric seconds written by the
// upload pipeline, decimal strings, and ISO-8601 text taken from external
// metadata. Normalize never fails; anything it cannot read becomes None.
package duration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/vidshare/vidshare-go/internal/model"
)

// DefaultUnavailable is rendered when no duration can be shown.
const DefaultUnavailable = "--:--"

// RawKind tags the shape of a raw duration as it entered the system.
type RawKind int

const (
	RawAbsent RawKind = iota
	RawNumeric
	RawText
	RawUnparseable
)

// Raw is a duration value before normalization.
type Raw struct {
	Kind   RawKind
	Number float64
	Text   string
}

// Absent is the raw value for a missing duration.
func Absent() Raw { return Raw{Kind: RawAbsent} }

// Number wraps a numeric duration in seconds.
func Number(f float64) Raw { return Raw{Kind: RawNumeric, Number: f} }

// Text wraps a textual duration.
func Text(s string) Raw { return Raw{Kind: RawText, Text: s} }

// FromJSON decodes a JSON or JSONB value. Numbers and strings are kept,
// null or empty input is Absent, anything else is Unparseable.
func FromJSON(b []byte) Raw {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return Absent()
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return Raw{Kind: RawUnparseable}
		}
		return Text(s)
	case '{', '[', 't', 'f':
		return Raw{Kind: RawUnparseable}
	}

	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return Raw{Kind: RawUnparseable}
	}
	return Number(f)
}

// FromAny converts a dynamically typed value, such as a decoded JSON field.
func FromAny(v any) Raw {
	switch x := v.(type) {
	case nil:
		return Absent()
	case Raw:
		return x
	case string:
		return Text(x)
	case *string:
		if x == nil {
			return Absent()
		}
		return Text(*x)
	case float64:
		return Number(x)
	case float32:
		return Number(float64(x))
	case int:
		return Number(float64(x))
	case int32:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Raw{Kind: RawUnparseable}
		}
		return Number(f)
	case json.RawMessage:
		return FromJSON(x)
	}
	return Raw{Kind: RawUnparseable}
}

// Kind tags a normalized duration.
type Kind int

const (
	None Kind = iota
	Seconds
	ISO
)

// Normalized is a duration in one of the canonical forms.
type Normalized struct {
	Kind    Kind
	Seconds float64
	ISO     string
}

func (n Normalized) String() string {
	switch n.Kind {
	case Seconds:
		return fmt.Sprintf("seconds(%g)", n.Seconds)
	case ISO:
		return fmt.Sprintf("iso(%s)", n.ISO)
	}
	return "none"
}

// Normalize applies the parsing rules to a raw value.
func Normalize(r Raw) Normalized {
	switch r.Kind {
	case RawNumeric:
		if math.IsNaN(r.Number) || math.IsInf(r.Number, 0) {
			return Normalized{}
		}
		return Normalized{Kind: Seconds, Seconds: r.Number}
	case RawText:
		s := strings.TrimSpace(r.Text)
		if s == "" {
			return Normalized{}
		}
		if strings.HasPrefix(s, "P") {
			return Normalized{Kind: ISO, ISO: s}
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return Normalized{}
		}
		return Normalized{Kind: Seconds, Seconds: f}
	}
	return Normalized{}
}

// Parser formats an ISO-8601 duration. It returns "" or the input unchanged
// when it has nothing better to offer.
type Parser func(iso string) string

// Formatter renders normalized durations.
type Formatter struct {
	// Parser is consulted before the built-in ISO fallback. May be nil.
	Parser Parser
	// Unavailable is rendered for None and unreadable ISO text.
	Unavailable string
}

// NewFormatter returns a Formatter with the default fallback string.
func NewFormatter(p Parser) *Formatter {
	return &Formatter{Parser: p, Unavailable: DefaultUnavailable}
}

// Format renders n for a video of the given source type.
//
// Seconds render as minutes and seconds only (3661 -> "61:01"); ISO text
// renders hours when present (PT1H1M1S -> "1:01:01"). External clips and
// uploads read ISO text the same way once it has passed Normalize, so the
// source type does not change the result.
func (f *Formatter) Format(n Normalized, _ model.SourceType) string {
	switch n.Kind {
	case Seconds:
		return FormatSeconds(n.Seconds)
	case ISO:
		if f.Parser != nil {
			if out := f.Parser(n.ISO); out != "" && out != n.ISO {
				return out
			}
		}
		if out, ok := FormatISO(n.ISO); ok {
			return out
		}
	}
	return f.unavailable()
}

// Display normalizes and formats r in one call.
func (f *Formatter) Display(r Raw, src model.SourceType) string {
	return f.Format(Normalize(r), src)
}

func (f *Formatter) unavailable() string {
	if f.Unavailable == "" {
		return DefaultUnavailable
	}
	return f.Unavailable
}

// maxExactSeconds is the largest float64 below which every whole number of
// seconds is representable, so integer math is exact.
const maxExactSeconds = 1 << 53

// FormatSeconds renders seconds as M:SS. Negative or non-finite input is "0:00".
func FormatSeconds(sec float64) string {
	if math.IsNaN(sec) || math.IsInf(sec, 0) || sec < 0 {
		return "0:00"
	}
	if sec >= maxExactSeconds {
		whole := math.Floor(sec)
		mins := strconv.FormatFloat(math.Floor(whole/60), 'f', 0, 64)
		return fmt.Sprintf("%s:%02d", mins, int(math.Mod(whole, 60)))
	}
	total := int64(sec)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

var isoFallbackRe = regexp.MustCompile(`P(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?`)

// FormatISO is the built-in ISO-8601 reader. It understands the hour, minute
// and second designators only; other components are ignored.
func FormatISO(iso string) (string, bool) {
	if !strings.HasPrefix(iso, "P") {
		return "", false
	}
	m := isoFallbackRe.FindStringSubmatch(iso)
	if m == nil {
		return "", false
	}

	total, ok := isoSeconds(m[1], m[2], m[3])
	if !ok {
		return "", false
	}
	h := total / 3600
	mins := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mins, s), true
	}
	return fmt.Sprintf("%d:%02d", mins, s), true
}

// isoSeconds sums hour, minute and second components. It fails when a
// component does not parse or the total does not fit in an int64.
func isoSeconds(h, m, sec string) (int64, bool) {
	var total int64
	for _, c := range []struct {
		digits string
		unit   int64
	}{{h, 3600}, {m, 60}, {sec, 1}} {
		if c.digits == "" {
			continue
		}
		n, err := strconv.ParseInt(c.digits, 10, 64)
		if err != nil || n > (math.MaxInt64-total)/c.unit {
			return 0, false
		}
		total += n * c.unit
	}
	return total, true
}

package edm

import (
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ericlagergren/decimal"
	"github.com/google/uuid"
)

var (
	floatPattern    = regexp.MustCompile(`^[+-]?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)(?:[eE][+-]?[0-9]+)?$`)
	decimalPattern  = regexp.MustCompile(`^[+-]?[0-9]+(?:\.[0-9]+)?$`)
	guidPattern     = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	dateTimePattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}(:[0-9]{2}(?:\.([0-9]{1,12}))?)?(?:Z|[+-][0-9]{2}:[0-9]{2})$`)
	timeOfDayRe     = regexp.MustCompile(`^([0-9]{2}):([0-9]{2})(?::([0-9]{2})(?:\.([0-9]{1,12}))?)?$`)
	durationPattern = regexp.MustCompile(`^(-)?P(?:([0-9]+)D)?(?:T(?:([0-9]+)H)?(?:([0-9]+)M)?(?:([0-9]+)(?:\.([0-9]{1,12}))?S)?)?$`)
)

// --- Boolean ---

type booleanType struct{}

func (booleanType) Name() string { return "Edm.Boolean" }
func (booleanType) Kind() Kind { return KindBoolean }

func (t booleanType) ValueOfString(s string, f Facets) (any, error) {
	if s == "" {
		return nil, CheckNull(t.Name(), f)
	}
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return nil, &InvalidLexicalFormError{TypeName: t.Name(), Lexical: s}
}

func (t booleanType) ValueToString(v any, f Facets) (string, error) {
	if v == nil {
		return formatNil(t.Name(), f)
	}
	b, ok := v.(bool)
	if !ok {
		return "", &UnsupportedValueKindError{TypeName: t.Name(), Value: v}
	}
	return strconv.FormatBool(b), nil
}

// --- Integers ---

// integerType covers Edm.Byte, Edm.SByte and Edm.Int16/32/64.
type integerType struct {
	name     string
	min, max int64
	kind     reflect.Kind
}

func (t integerType) Name() string { return t.name }
func (integerType) Kind() Kind { return KindIntegral }

func (t integerType) ValueOfString(s string, f Facets) (any, error) {
	if s == "" {
		return nil, CheckNull(t.Name(), f)
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, &InvalidLexicalFormError{TypeName: t.name, Lexical: s, Cause: err}
	}
	if i < t.min || i > t.max {
		return nil, &InvalidLexicalFormError{
			TypeName: t.name,
			Lexical:  s,
			Cause:    fmt.Errorf("out of range [%d, %d]", t.min, t.max),
		}
	}
	return t.native(i), nil
}

func (t integerType) native(i int64) any {
	switch t.kind {
	case reflect.Uint8:
		return uint8(i)
	case reflect.Int8:
		return int8(i)
	case reflect.Int16:
		return int16(i)
	case reflect.Int32:
		return int32(i)
	default:
		return i
	}
}

func (t integerType) ValueToString(v any, f Facets) (string, error) {
	if v == nil {
		return formatNil(t.name, f)
	}
	i, ok := integerValue(v)
	if !ok || i < t.min || i > t.max {
		return "", &UnsupportedValueKindError{TypeName: t.name, Value: v}
	}
	return strconv.FormatInt(i, 10), nil
}

// integerValue widens any Go integer to int64. time.Duration is excluded
// because it belongs to Edm.Duration.
func integerValue(v any) (int64, bool) {
	if _, ok := v.(time.Duration); ok {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}

// --- Single / Double ---

type floatType struct {
	name string
	bits int
}

func (t floatType) Name() string { return t.name }
func (floatType) Kind() Kind { return KindFloating }

func (t floatType) ValueOfString(s string, f Facets) (any, error) {
	if s == "" {
		return nil, CheckNull(t.Name(), f)
	}
	var x float64
	switch s {
	case "INF":
		x = math.Inf(1)
	case "-INF":
		x = math.Inf(-1)
	case "NaN":
		x = math.NaN()
	default:
		if !floatPattern.MatchString(s) {
			return nil, &InvalidLexicalFormError{TypeName: t.name, Lexical: s}
		}
		var err error
		x, err = strconv.ParseFloat(s, t.bits)
		if err != nil {
			return nil, &InvalidLexicalFormError{TypeName: t.name, Lexical: s, Cause: err}
		}
	}
	if t.bits == 32 {
		return float32(x), nil
	}
	return x, nil
}

func (t floatType) ValueToString(v any, f Facets) (string, error) {
	if v == nil {
		return formatNil(t.name, f)
	}
	var x float64
	switch n := v.(type) {
	case float32:
		x = float64(n)
	case float64:
		if t.bits == 32 && !math.IsInf(n, 0) && !math.IsNaN(n) && math.Abs(n) > math.MaxFloat32 {
			return "", &UnsupportedValueKindError{TypeName: t.name, Value: v}
		}
		x = n
	default:
		i, ok := integerValue(v)
		if !ok {
			return "", &UnsupportedValueKindError{TypeName: t.name, Value: v}
		}
		x = float64(i)
	}
	switch {
	case math.IsNaN(x):
		return "NaN", nil
	case math.IsInf(x, 1):
		return "INF", nil
	case math.IsInf(x, -1):
		return "-INF", nil
	}
	return formatFloat(x, t.bits), nil
}

// formatFloat writes plain notation for 1e-6 <= |x| < 1e21 and exponent
// notation with an unpadded exponent outside that range.
func formatFloat(x float64, bits int) string {
	if a := math.Abs(x); a == 0 || (a >= 1e-6 && a < 1e21) {
		return strconv.FormatFloat(x, 'f', -1, bits)
	}
	mant, exp, _ := strings.Cut(strconv.FormatFloat(x, 'E', -1, bits), "E")
	return mant + "E" + exp[:1] + strings.TrimLeft(exp[1:], "0")
}

// --- Decimal ---

type decimalType struct{}

func (decimalType) Name() string { return "Edm.Decimal" }
func (decimalType) Kind() Kind { return KindDecimal }

func (t decimalType) ValueOfString(s string, f Facets) (any, error) {
	if s == "" {
		return nil, CheckNull(t.Name(), f)
	}
	if !decimalPattern.MatchString(s) {
		return nil, &InvalidLexicalFormError{TypeName: t.Name(), Lexical: s}
	}
	x, ok := new(decimal.Big).SetString(s)
	if !ok || !x.IsFinite() {
		return nil, &InvalidLexicalFormError{TypeName: t.Name(), Lexical: s}
	}
	if err := t.checkPrecisionScale(x, f); err != nil {
		return nil, err
	}
	return x, nil
}

func (t decimalType) ValueToString(v any, f Facets) (string, error) {
	if v == nil {
		return formatNil(t.Name(), f)
	}
	var x *decimal.Big
	switch n := v.(type) {
	case *decimal.Big:
		if n == nil {
			return formatNil(t.Name(), f)
		}
		if !n.IsFinite() {
			return "", &UnsupportedValueKindError{TypeName: t.Name(), Value: v}
		}
		x = n
	case float32, float64:
		fv := reflect.ValueOf(n).Float()
		if math.IsNaN(fv) || math.IsInf(fv, 0) {
			return "", &UnsupportedValueKindError{TypeName: t.Name(), Value: v}
		}
		x, _ = new(decimal.Big).SetString(strconv.FormatFloat(fv, 'f', -1, 64))
	default:
		i, ok := integerValue(v)
		if !ok {
			return "", &UnsupportedValueKindError{TypeName: t.Name(), Value: v}
		}
		x = decimal.New(i, 0)
	}
	if err := t.checkPrecisionScale(x, f); err != nil {
		return "", err
	}
	return formatDecimal(x), nil
}

// checkPrecisionScale rejects values with more fractional digits than the
// scale facet, or more significant digits than the precision facet.
func (t decimalType) checkPrecisionScale(x *decimal.Big, f Facets) error {
	scale := x.Scale()
	if scale < 0 {
		scale = 0
	}
	intDigits := x.Precision() - x.Scale()
	if intDigits < 0 {
		intDigits = 0
	}
	if f.Scale != nil && scale > *f.Scale {
		return &FacetViolationError{
			TypeName: t.Name(),
			Facet:    "scale",
			Detail:   fmt.Sprintf("%d fractional digits exceed scale %d", scale, *f.Scale),
		}
	}
	if f.Precision != nil {
		fractional := scale
		if f.Scale != nil {
			fractional = *f.Scale
		}
		if intDigits+fractional > *f.Precision {
			return &FacetViolationError{
				TypeName: t.Name(),
				Facet:    "precision",
				Detail:   fmt.Sprintf("%d integer digits do not fit precision %d", intDigits, *f.Precision),
			}
		}
	}
	return nil
}

// formatDecimal renders x in plain notation, keeping its scale.
func formatDecimal(x *decimal.Big) string {
	s := x.String()
	i := strings.IndexAny(s, "eE")
	if i < 0 {
		return s
	}
	exp, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return s
	}
	mant := s[:i]
	sign := ""
	if strings.HasPrefix(mant, "-") {
		sign, mant = "-", mant[1:]
	}
	intPart, frac, _ := strings.Cut(mant, ".")
	digits := intPart + frac
	point := len(intPart) + exp
	switch {
	case point <= 0:
		return sign + "0." + strings.Repeat("0", -point) + digits
	case point >= len(digits):
		return sign + digits + strings.Repeat("0", point-len(digits))
	default:
		return sign + digits[:point] + "." + digits[point:]
	}
}

// --- String ---

type stringType struct{}

func (stringType) Name() string { return "Edm.String" }
func (stringType) Kind() Kind { return KindString }

func (t stringType) ValueOfString(s string, f Facets) (any, error) {
	if !utf8.ValidString(s) {
		return nil, &InvalidLexicalFormError{TypeName: t.Name(), Lexical: s, Cause: fmt.Errorf("invalid UTF-8")}
	}
	if err := t.check(s, f); err != nil {
		return nil, err
	}
	return s, nil
}

func (t stringType) ValueToString(v any, f Facets) (string, error) {
	if v == nil {
		return formatNil(t.Name(), f)
	}
	s, ok := v.(string)
	if !ok {
		return "", &UnsupportedValueKindError{TypeName: t.Name(), Value: v}
	}
	if !utf8.ValidString(s) {
		return "", &UnsupportedValueKindError{TypeName: t.Name(), Value: v}
	}
	if err := t.check(s, f); err != nil {
		return "", err
	}
	return s, nil
}

func (t stringType) check(s string, f Facets) error {
	if f.Unicode != nil && !*f.Unicode {
		for i, r := range s {
			if r > 0x7f {
				return &FacetViolationError{
					TypeName: t.Name(),
					Facet:    "unicode",
					Detail:   fmt.Sprintf("non-ASCII code point %U at byte %d", r, i),
				}
			}
		}
	}
	return f.checkMaxLength(t.Name(), utf8.RuneCountInString(s))
}

// --- Binary ---

type binaryType struct{}

func (binaryType) Name() string { return "Edm.Binary" }
func (binaryType) Kind() Kind { return KindBinary }

var base64Normalizer = strings.NewReplacer("+", "-", "/", "_")

// ValueOfString accepts base64 and base64url, padded or not.
func (t binaryType) ValueOfString(s string, f Facets) (any, error) {
	if s == "" {
		return nil, CheckNull(t.Name(), f)
	}
	b, err := base64.RawURLEncoding.DecodeString(base64Normalizer.Replace(strings.TrimRight(s, "=")))
	if err != nil {
		return nil, &InvalidLexicalFormError{TypeName: t.Name(), Lexical: s, Cause: err}
	}
	if err := f.checkMaxLength(t.Name(), len(b)); err != nil {
		return nil, err
	}
	return b, nil
}

func (t binaryType) ValueToString(v any, f Facets) (string, error) {
	if v == nil {
		return formatNil(t.Name(), f)
	}
	b, ok := v.([]byte)
	if !ok {
		return "", &UnsupportedValueKindError{TypeName: t.Name(), Value: v}
	}
	if err := f.checkMaxLength(t.Name(), len(b)); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// --- Date ---

type dateType struct{}

func (dateType) Name() string { return "Edm.Date" }
func (dateType) Kind() Kind { return KindTemporal }

const dateLayout = "2006-01-02"

func (t dateType) ValueOfString(s string, f Facets) (any, error) {
	if s == "" {
		return nil, CheckNull(t.Name(), f)
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, &InvalidLexicalFormError{TypeName: t.Name(), Lexical: s, Cause: err}
	}
	return d, nil
}

func (t dateType) ValueToString(v any, f Facets) (string, error) {
	if v == nil {
		return formatNil(t.Name(), f)
	}
	d, ok := v.(time.Time)
	if !ok {
		return "", &UnsupportedValueKindError{TypeName: t.Name(), Value: v}
	}
	return d.Format(dateLayout), nil
}

// --- DateTimeOffset ---

type dateTimeOffsetType struct{}

func (dateTimeOffsetType) Name() string { return "Edm.DateTimeOffset" }
func (dateTimeOffsetType) Kind() Kind { return KindTemporal }

func (t dateTimeOffsetType) ValueOfString(s string, f Facets) (any, error) {
	if s == "" {
		return nil, CheckNull(t.Name(), f)
	}
	m := dateTimePattern.FindStringSubmatch(s)
	if m == nil {
		return nil, &InvalidLexicalFormError{TypeName: t.Name(), Lexical: s}
	}
	layout := time.RFC3339Nano
	if m[1] == "" {
		layout = "2006-01-02T15:04Z07:00"
	}
	ts, err := time.Parse(layout, s)
	if err != nil {
		return nil, &InvalidLexicalFormError{TypeName: t.Name(), Lexical: s, Cause: err}
	}
	if err := checkFraction(t.Name(), m[2], f); err != nil {
		return nil, err
	}
	return ts, nil
}

func (t dateTimeOffsetType) ValueToString(v any, f Facets) (string, error) {
	if v == nil {
		return formatNil(t.Name(), f)
	}
	ts, ok := v.(time.Time)
	if !ok {
		return "", &UnsupportedValueKindError{TypeName: t.Name(), Value: v}
	}
	frac, err := formatFraction(t.Name(), ts.Nanosecond(), f)
	if err != nil {
		return "", err
	}
	return ts.Format("2006-01-02T15:04:05") + frac + ts.Format("Z07:00"), nil
}

// --- TimeOfDay ---

// TimeOfDay is the Go representation of Edm.TimeOfDay.
type TimeOfDay struct {
	Hour, Minute, Second, Nanosecond int
}

// String returns the canonical lexical form without fractional precision
// limits.
func (t TimeOfDay) String() string {
	frac, _ := formatFraction("Edm.TimeOfDay", t.Nanosecond, Facets{})
	return fmt.Sprintf("%02d:%02d:%02d%s", t.Hour, t.Minute, t.Second, frac)
}

type timeOfDayType struct{}

func (timeOfDayType) Name() string { return "Edm.TimeOfDay" }
func (timeOfDayType) Kind() Kind { return KindTemporal }

func (t timeOfDayType) ValueOfString(s string, f Facets) (any, error) {
	if s == "" {
		return nil, CheckNull(t.Name(), f)
	}
	m := timeOfDayRe.FindStringSubmatch(s)
	if m == nil {
		return nil, &InvalidLexicalFormError{TypeName: t.Name(), Lexical: s}
	}
	tod := TimeOfDay{}
	tod.Hour, _ = strconv.Atoi(m[1])
	tod.Minute, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		tod.Second, _ = strconv.Atoi(m[3])
	}
	if tod.Hour > 23 || tod.Minute > 59 || tod.Second > 59 {
		return nil, &InvalidLexicalFormError{TypeName: t.Name(), Lexical: s, Cause: fmt.Errorf("clock value out of range")}
	}
	if err := checkFraction(t.Name(), m[4], f); err != nil {
		return nil, err
	}
	tod.Nanosecond = fractionNanos(m[4])
	return tod, nil
}

func (t timeOfDayType) ValueToString(v any, f Facets) (string, error) {
	if v == nil {
		return formatNil(t.Name(), f)
	}
	var tod TimeOfDay
	switch x := v.(type) {
	case TimeOfDay:
		tod = x
	case time.Time:
		tod = TimeOfDay{Hour: x.Hour(), Minute: x.Minute(), Second: x.Second(), Nanosecond: x.Nanosecond()}
	default:
		return "", &UnsupportedValueKindError{TypeName: t.Name(), Value: v}
	}
	if tod.Hour < 0 || tod.Hour > 23 || tod.Minute < 0 || tod.Minute > 59 ||
		tod.Second < 0 || tod.Second > 59 || tod.Nanosecond < 0 || tod.Nanosecond > 999999999 {
		return "", &UnsupportedValueKindError{TypeName: t.Name(), Value: v}
	}
	frac, err := formatFraction(t.Name(), tod.Nanosecond, f)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d:%02d%s", tod.Hour, tod.Minute, tod.Second, frac), nil
}

// --- Duration ---

type durationType struct{}

func (durationType) Name() string { return "Edm.Duration" }
func (durationType) Kind() Kind { return KindTemporal }

func (t durationType) ValueOfString(s string, f Facets) (any, error) {
	if s == "" {
		return nil, CheckNull(t.Name(), f)
	}
	m := durationPattern.FindStringSubmatch(s)
	if m == nil || strings.HasSuffix(s, "P") || strings.HasSuffix(s, "T") {
		return nil, &InvalidLexicalFormError{TypeName: t.Name(), Lexical: s}
	}
	if err := checkFraction(t.Name(), m[6], f); err != nil {
		return nil, err
	}
	var total int64
	units := []struct {
		text string
		unit time.Duration
	}{
		{m[2], 24 * time.Hour},
		{m[3], time.Hour},
		{m[4], time.Minute},
		{m[5], time.Second},
	}
	for _, u := range units {
		if u.text == "" {
			continue
		}
		n, err := strconv.ParseInt(u.text, 10, 64)
		if err != nil || n > math.MaxInt64/int64(u.unit) {
			return nil, &InvalidLexicalFormError{TypeName: t.Name(), Lexical: s, Cause: fmt.Errorf("duration overflows")}
		}
		add := n * int64(u.unit)
		if total > math.MaxInt64-add {
			return nil, &InvalidLexicalFormError{TypeName: t.Name(), Lexical: s, Cause: fmt.Errorf("duration overflows")}
		}
		total += add
	}
	nanos := int64(fractionNanos(m[6]))
	if total > math.MaxInt64-nanos {
		return nil, &InvalidLexicalFormError{TypeName: t.Name(), Lexical: s, Cause: fmt.Errorf("duration overflows")}
	}
	total += nanos
	if m[1] == "-" {
		total = -total
	}
	return time.Duration(total), nil
}

func (t durationType) ValueToString(v any, f Facets) (string, error) {
	if v == nil {
		return formatNil(t.Name(), f)
	}
	d, ok := v.(time.Duration)
	if !ok || d == math.MinInt64 {
		return "", &UnsupportedValueKindError{TypeName: t.Name(), Value: v}
	}
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}
	b.WriteByte('P')
	day := 24 * time.Hour
	days := d / day
	rem := d % day
	if days > 0 {
		fmt.Fprintf(&b, "%dD", days)
	}
	if rem > 0 || days == 0 {
		b.WriteByte('T')
		h := rem / time.Hour
		rem %= time.Hour
		m := rem / time.Minute
		rem %= time.Minute
		sec := rem / time.Second
		nanos := int(rem % time.Second)
		if h > 0 {
			fmt.Fprintf(&b, "%dH", h)
		}
		if m > 0 {
			fmt.Fprintf(&b, "%dM", m)
		}
		if sec > 0 || nanos > 0 || (days == 0 && h == 0 && m == 0) {
			frac, err := formatFraction(t.Name(), nanos, f)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "%d%sS", sec, frac)
		}
	}
	return b.String(), nil
}

// --- Guid ---

type guidType struct{}

func (guidType) Name() string { return "Edm.Guid" }
func (guidType) Kind() Kind { return KindGuid }

func (t guidType) ValueOfString(s string, f Facets) (any, error) {
	if s == "" {
		return nil, CheckNull(t.Name(), f)
	}
	if !guidPattern.MatchString(s) {
		return nil, &InvalidLexicalFormError{TypeName: t.Name(), Lexical: s}
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return nil, &InvalidLexicalFormError{TypeName: t.Name(), Lexical: s, Cause: err}
	}
	return u, nil
}

func (t guidType) ValueToString(v any, f Facets) (string, error) {
	if v == nil {
		return formatNil(t.Name(), f)
	}
	switch u := v.(type) {
	case uuid.UUID:
		return u.String(), nil
	case [16]byte:
		return uuid.UUID(u).String(), nil
	}
	return "", &UnsupportedValueKindError{TypeName: t.Name(), Value: v}
}

// --- Stream ---

// streamType has no lexical form; stream values travel out of band.
type streamType struct{}

func (streamType) Name() string { return "Edm.Stream" }
func (streamType) Kind() Kind { return KindStream }

func (t streamType) ValueOfString(string, Facets) (any, error) {
	return nil, &NotImplementedError{TypeName: t.Name(), Operation: "ValueOfString"}
}

func (t streamType) ValueToString(any, Facets) (string, error) {
	return "", &NotImplementedError{TypeName: t.Name(), Operation: "ValueToString"}
}

// --- fractional seconds ---

// checkFraction rejects fractional-second digits beyond the precision facet.
// Trailing zeros do not count.
func checkFraction(typeName, frac string, f Facets) error {
	if f.Precision == nil {
		return nil
	}
	if n := len(strings.TrimRight(frac, "0")); n > *f.Precision {
		return &FacetViolationError{
			TypeName: typeName,
			Facet:    "precision",
			Detail:   fmt.Sprintf("%d fractional second digits exceed precision %d", n, *f.Precision),
		}
	}
	return nil
}

// fractionNanos converts up to twelve fractional digits to nanoseconds,
// truncating below nanosecond resolution.
func fractionNanos(frac string) int {
	if frac == "" {
		return 0
	}
	if len(frac) > 9 {
		frac = frac[:9]
	}
	n, _ := strconv.Atoi(frac + strings.Repeat("0", 9-len(frac)))
	return n
}

// formatFraction renders nanos as ".fff". With a precision facet exactly
// that many digits are written; otherwise trailing zeros are dropped.
func formatFraction(typeName string, nanos int, f Facets) (string, error) {
	digits := fmt.Sprintf("%09d", nanos)
	if f.Precision == nil {
		digits = strings.TrimRight(digits, "0")
		if digits == "" {
			return "", nil
		}
		return "." + digits, nil
	}
	p := *f.Precision
	if p < 9 && strings.TrimRight(digits[p:], "0") != "" {
		return "", &FacetViolationError{
			TypeName: typeName,
			Facet:    "precision",
			Detail:   fmt.Sprintf("value has more than %d fractional second digits", p),
		}
	}
	if p == 0 {
		return "", nil
	}
	if p > 9 {
		return "." + digits + strings.Repeat("0", p-9), nil
	}
	return "." + digits[:p], nil
}

package treegrid

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// Number formats numeric cell data with comma separators.
// decimals controls decimal places for floats.
func Number(decimals int) func(CellArgs) any {
	return func(a CellArgs) any {
		if a.CellData == nil {
			return nil
		}
		return groupThousands(strconv.FormatFloat(number(a.CellData), 'f', decimals, 64))
	}
}

// Percent formats numeric cell data as a percentage.
func Percent(decimals int) func(CellArgs) any {
	return func(a CellArgs) any {
		if a.CellData == nil {
			return nil
		}
		return strconv.FormatFloat(number(a.CellData), 'f', decimals, 64) + "%"
	}
}

// Bytes formats numeric cell data as a human-readable size.
func Bytes() func(CellArgs) any {
	return func(a CellArgs) any {
		if a.CellData == nil {
			return nil
		}
		return humanBytes(number(a.CellData))
	}
}

// Bool formats boolean cell data with custom labels.
func Bool(yes, no string) func(CellArgs) any {
	return func(a CellArgs) any {
		if b, ok := a.CellData.(bool); ok && b {
			return yes
		}
		return no
	}
}

// Time formats time.Time cell data with layout. Zero times are blank.
func Time(layout string) func(CellArgs) any {
	return func(a CellArgs) any {
		t, ok := a.CellData.(time.Time)
		if !ok || t.IsZero() {
			return nil
		}
		return t.Format(layout)
	}
}

// FormatterByName resolves the preset names used in grid config files:
// "number", "number:<decimals>", "percent", "percent:<decimals>", "bytes",
// "bool", "time" and "time:<layout>". "" and "text" mean no formatter.
func FormatterByName(name string) (func(CellArgs) any, error) {
	kind, arg, _ := strings.Cut(name, ":")
	switch kind {
	case "", "text":
		return nil, nil
	case "number", "percent":
		decimals := 0
		if arg != "" {
			d, err := strconv.Atoi(arg)
			if err != nil {
				return nil, fmt.Errorf("formatter %q: bad decimals: %w", name, err)
			}
			decimals = d
		}
		if kind == "number" {
			return Number(decimals), nil
		}
		return Percent(decimals), nil
	case "bytes":
		return Bytes(), nil
	case "bool":
		return Bool("yes", "no"), nil
	case "time":
		if arg == "" {
			arg = time.DateTime
		}
		return Time(arg), nil
	}
	return nil, fmt.Errorf("unknown formatter %q", name)
}

// Fit pads or truncates s to exactly width terminal cells.
func Fit(s string, width int, align Align) string {
	if width <= 0 {
		return ""
	}
	w := runewidth.StringWidth(s)
	if w > width {
		return runewidth.Truncate(s, width, "…")
	}
	switch align {
	case AlignRight:
		return runewidth.FillLeft(s, width)
	case AlignCenter:
		left := (width - w) / 2
		return strings.Repeat(" ", left) + runewidth.FillRight(s, width-left)
	}
	return runewidth.FillRight(s, width)
}

func toText(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	}
	return fmt.Sprint(v)
}

// number reads numeric cell data through any pointers. Anything else is 0.
func number(v any) float64 {
	rv := derefValue(reflect.ValueOf(v))
	if !rv.IsValid() || !isNumeric(rv) {
		return 0
	}
	return toFloat(rv)
}

// groupThousands puts a comma between every third integer digit of a
// formatted number.
func groupThousands(s string) string {
	start := 0
	if strings.HasPrefix(s, "-") {
		start = 1
	}
	end := strings.IndexByte(s, '.')
	if end < 0 {
		end = len(s)
	}

	var b strings.Builder
	b.Grow(len(s) + (end-start)/3)
	b.WriteString(s[:start])
	for i := start; i < end; i++ {
		if i > start && (end-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(s[i])
	}
	b.WriteString(s[end:])
	return b.String()
}

var byteUnits = [...]string{"B", "KB", "MB", "GB", "TB", "PB"}

// humanBytes scales n by 1024 until it fits a unit. Whole bytes have no
// decimals.
func humanBytes(n float64) string {
	if n < 0 {
		return "-" + humanBytes(-n)
	}
	unit := 0
	for n >= 1024 && unit < len(byteUnits)-1 {
		n /= 1024
		unit++
	}
	if unit == 0 {
		return strconv.FormatInt(int64(n), 10) + " B"
	}
	return strconv.FormatFloat(n, 'f', 1, 64) + " " + byteUnits[unit]
}

package perf

import (
	"bufio"
	"sort"
	"strconv"
	"strings"
)

// topSymbols is the ranking cutoff for profile reports.
const topSymbols = 20

// ParseStatReport parses a perf stat textual report into a CounterSet.
//
// Two line forms are recognized:
//
//	198,137            cache-misses
//	150,000            cpu_atom/cache-misses/
//	<not supported>    L1-dcache-loads
//	<not counted>      cpu_core/LLC-loads/
//
// Values reported once per core domain on hybrid CPUs accumulate into a
// single entry. A sentinel marks an event uncounted only while no numeric
// value exists for it; it never overwrites one, and a later numeric value
// replaces an earlier sentinel.
func ParseStatReport(report string) CounterSet {
	set := CounterSet{}
	scanner := bufio.NewScanner(strings.NewReader(report))
	for scanner.Scan() {
		event, value, counted, ok := parseStatLine(scanner.Text())
		if !ok {
			continue
		}
		if counted {
			if prev, exists := set[event]; exists && prev != nil {
				value += *prev
			}
			v := value
			set[event] = &v
			continue
		}
		if _, exists := set[event]; !exists {
			set[event] = nil
		}
	}
	return set
}

// parseStatLine tokenizes one report line. ok is false for lines outside
// the grammar (headers, timing summary, blank lines).
func parseStatLine(line string) (event string, value int64, counted, ok bool) {
	line = strings.TrimSpace(line)

	if rest, found := cutSentinel(line); found {
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return "", 0, false, false
		}
		name := eventName(fields[0])
		if name == "" {
			return "", 0, false, false
		}
		return name, 0, false, true
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", 0, false, false
	}
	raw, valid := countToken(fields[0])
	if !valid {
		return "", 0, false, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", 0, false, false
	}
	name := eventName(fields[1])
	if name == "" {
		return "", 0, false, false
	}
	return name, v, true, true
}

// cutSentinel strips a leading "<not counted>" or "<not supported>" marker.
func cutSentinel(line string) (string, bool) {
	for _, s := range []string{"<not counted>", "<not supported>"} {
		if strings.HasPrefix(line, s) {
			return line[len(s):], true
		}
	}
	return line, false
}

// countToken validates a thousands-separated integer token and strips the
// separators. Fractional tokens (task-clock msec values) are rejected.
func countToken(tok string) (string, bool) {
	var b strings.Builder
	for _, r := range tok {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ',':
			// thousands separator, dropped
		default:
			return "", false
		}
	}
	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}

// eventName extracts the event name from a report token, stripping an
// optional core-domain tag ("cpu_atom/cache-misses/" on hybrid CPUs) and
// keeping the leading run of event-name characters.
func eventName(tok string) string {
	if strings.HasPrefix(tok, "cpu_") {
		if i := strings.IndexByte(tok, '/'); i > 0 {
			tok = tok[i+1:]
		}
	}
	end := 0
	for end < len(tok) && isEventChar(tok[end]) {
		end++
	}
	return tok[:end]
}

func isEventChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == '-' || c == '_'
}

// ParseReport reduces a perf report symbol listing to the top ranked
// entries. Overhead lines look like:
//
//	12.34%  bench_compare  bench_compare      [.] mt_page_insert
//
// The [.] marker separates report metadata from the user-space symbol.
// Hybrid CPUs emit one section per core domain for the same binary;
// contributions for the same symbol are summed across sections. The result
// is the top 20 symbols by descending overhead, ties in first-seen order.
func ParseReport(report string) []Entry {
	totals := make(map[string]float64)
	var order []string

	scanner := bufio.NewScanner(strings.NewReader(report))
	for scanner.Scan() {
		pct, sym, ok := parseReportLine(scanner.Text())
		if !ok {
			continue
		}
		if _, seen := totals[sym]; !seen {
			order = append(order, sym)
		}
		totals[sym] += pct
	}

	entries := make([]Entry, 0, len(order))
	for _, sym := range order {
		entries = append(entries, Entry{Overhead: totals[sym], Symbol: sym})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Overhead > entries[j].Overhead
	})
	if len(entries) > topSymbols {
		entries = entries[:topSymbols]
	}
	return entries
}

// parseReportLine tokenizes one symbol line; ok is false for anything
// outside the overhead grammar (comments, headers, kernel symbols without
// the [.] marker).
func parseReportLine(line string) (pct float64, symbol string, ok bool) {
	line = strings.TrimSpace(line)

	i := strings.IndexByte(line, '%')
	if i <= 0 {
		return 0, "", false
	}
	if !isDecimal(line[:i]) {
		return 0, "", false
	}
	rest := line[i+1:]
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return 0, "", false
	}

	j := strings.LastIndex(rest, "[.]")
	if j < 0 || strings.TrimSpace(rest[:j]) == "" {
		return 0, "", false
	}
	symbol = strings.TrimSpace(rest[j+len("[.]"):])
	if symbol == "" {
		return 0, "", false
	}

	v, err := strconv.ParseFloat(line[:i], 64)
	if err != nil {
		return 0, "", false
	}
	return v, symbol, true
}

// isDecimal reports whether s is <digits>.<digits>.
func isDecimal(s string) bool {
	dot := strings.IndexByte(s, '.')
	if dot <= 0 || dot == len(s)-1 {
		return false
	}
	for k := 0; k < len(s); k++ {
		if k == dot {
			continue
		}
		if s[k] < '0' || s[k] > '9' {
			return false
		}
	}
	return true
}

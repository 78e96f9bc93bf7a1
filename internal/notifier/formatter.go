package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"

	"ChannelScout/internal/memory"
	"ChannelScout/internal/model"
)

const dupMarker = "💤"

var freshMarker = map[model.Category]string{
	model.CategoryComposite:   "💎",
	model.CategoryChannel:     "🌊",
	model.CategoryVWMASupport: "🔥",
}

var sectionTitle = map[model.Category]string{
	model.CategoryComposite:   "🏆 <b>Composite setups</b>",
	model.CategoryChannel:     "🌊 <b>Channel bottom</b>",
	model.CategoryVWMASupport: "📊 <b>VWMA 100 support</b>",
}

// ReportOptions controls report layout.
type ReportOptions struct {
	// Timeframes fixes the order of timeframe groups inside a section.
	Timeframes []string
	// Caps limits rendered lines per (category, timeframe) group; 0 means no cap.
	Caps     map[model.Category]int
	Location *time.Location
}

// FormatReport renders a report as Telegram HTML. Sections follow category
// priority; inside a section, matches are grouped by timeframe in the
// configured order. An empty report renders as "".
func FormatReport(r *model.Report, opts ReportOptions) string {
	if r == nil || len(r.Matches) == 0 {
		return ""
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("🦁 <b>Setup Scanner Report</b> (%s)\n", r.CreatedAt.In(loc).Format("15:04")))

	for _, cat := range model.Categories {
		matches := r.ByCategory(cat)
		if len(matches) == 0 {
			continue
		}
		b.WriteString("\n")
		b.WriteString(sectionTitle[cat])
		b.WriteString("\n")
		for _, group := range groupByTimeframe(matches, opts.Timeframes) {
			limit := opts.Caps[cat]
			shown := group
			if limit > 0 && len(group) > limit {
				shown = group[:limit]
			}
			for _, m := range shown {
				b.WriteString(formatMatch(m))
				b.WriteString("\n")
			}
			if hidden := len(group) - len(shown); hidden > 0 {
				b.WriteString(fmt.Sprintf("...+%d more\n", hidden))
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// groupByTimeframe splits matches into per-timeframe groups. Known timeframes
// come first in the given order, unknown ones follow in first-seen order.
// Scan order is kept inside each group.
func groupByTimeframe(matches []model.Match, order []string) [][]model.Match {
	byTF := lo.GroupBy(matches, func(m model.Match) string { return m.Timeframe })
	seen := lo.Uniq(lo.Map(matches, func(m model.Match, _ int) string { return m.Timeframe }))

	rank := func(tf string) int {
		if i := lo.IndexOf(order, tf); i >= 0 {
			return i
		}
		return len(order) + lo.IndexOf(seen, tf)
	}
	sort.SliceStable(seen, func(i, j int) bool { return rank(seen[i]) < rank(seen[j]) })

	return lo.Map(seen, func(tf string, _ int) []model.Match { return byTF[tf] })
}

func formatMatch(m model.Match) string {
	mark := freshMarker[m.Category]
	if m.IsDuplicate {
		mark = dupMarker
	}
	id := html.EscapeString(m.InstrumentID)
	switch m.Category {
	case model.CategoryComposite:
		line := fmt.Sprintf("%s <b>%s</b> (%s) score %d", mark, id, m.Timeframe, int(m.Value))
		if len(m.Reasons) > 0 {
			line += " └ " + html.EscapeString(strings.Join(m.Reasons, ", "))
		}
		return line
	case model.CategoryChannel:
		return fmt.Sprintf("%s %s | %s (%+.1f%% off lower band)", mark, m.Timeframe, id, m.Value)
	default:
		return fmt.Sprintf("%s %s | %s (%+.1f%%)", mark, m.Timeframe, id, m.Value)
	}
}

// SplitMessage splits text into chunks of at most limit UTF-16 code units,
// which is how Telegram measures message length, breaking on line
// boundaries. A single line longer than limit is cut on rune boundaries.
func SplitMessage(text string, limit int) []string {
	if text == "" {
		return nil
	}
	if limit <= 0 || utf16Len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 || cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		n := utf16Len(line)
		if n > limit {
			flush()
			for _, r := range line {
				w := runeUnits(r)
				if curLen > 0 && curLen+w > limit {
					flush()
				}
				cur.WriteRune(r)
				curLen += w
			}
			continue
		}
		sep := 0
		if cur.Len() > 0 {
			sep = 1
		}
		if curLen+sep+n > limit {
			flush()
			sep = 0
		}
		if sep == 1 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
		curLen += sep + n
	}
	flush()
	return chunks
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}
	return n
}

// runeUnits is the UTF-16 width of r; invalid runes count as one unit.
func runeUnits(r rune) int {
	if w := utf16.RuneLen(r); w > 0 {
		return w
	}
	return 1
}

// RunStatus is the view of a finished run used by FormatStatus.
type RunStatus struct {
	RunID     string
	State     string
	StartedAt time.Time
	Duration  time.Duration
	Universe  int
	Scanned   int
	Skipped   int
	Notified  bool
	Err       string
	Report    *model.Report
}

// FormatStatus renders the last run with a per-timeframe match count table.
func FormatStatus(st *RunStatus, timeframes []string, loc *time.Location) string {
	if st == nil {
		return "No scan has run yet."
	}
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	b.WriteString("📋 <b>Last scan</b>\n\n")
	b.WriteString(fmt.Sprintf("Run: %s\n", html.EscapeString(st.RunID)))
	b.WriteString(fmt.Sprintf("State: %s\n", st.State))
	b.WriteString(fmt.Sprintf("Started: %s (%s)\n", st.StartedAt.In(loc).Format("2006-01-02 15:04"), st.Duration.Round(time.Second)))
	b.WriteString(fmt.Sprintf("Universe: %d | pairs scanned %d, skipped %d\n", st.Universe, st.Scanned, st.Skipped))
	if st.Err != "" {
		b.WriteString(fmt.Sprintf("Error: %s\n", html.EscapeString(st.Err)))
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Notified: %v\n", st.Notified))

	var matches []model.Match
	if st.Report != nil {
		matches = st.Report.Matches
	}
	counts := lo.CountValuesBy(matches, func(m model.Match) string { return m.Timeframe + "|" + string(m.Category) })

	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"TF", "Composite", "Channel", "VWMA"})
	totals := make([]int, len(model.Categories))
	for _, tf := range timeframes {
		row := table.Row{tf}
		for i, cat := range model.Categories {
			n := counts[tf+"|"+string(cat)]
			totals[i] += n
			row = append(row, n)
		}
		tw.AppendRow(row)
	}
	tw.AppendFooter(table.Row{"Total", totals[0], totals[1], totals[2]})
	tw.SetStyle(table.StyleLight)

	b.WriteString("\n<pre>")
	b.WriteString(html.EscapeString(tw.Render()))
	b.WriteString("</pre>")
	return b.String()
}

// FormatMemory renders the dedup memory carried into the next run.
func FormatMemory(s memory.Snapshot, timeframes []string) string {
	if s.Count() == 0 {
		return "🧠 Memory is empty."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🧠 <b>Memory</b> (%d entries)\n", s.Count()))

	tfs := make([]string, 0, len(s))
	for tf := range s {
		tfs = append(tfs, tf)
	}
	sort.SliceStable(tfs, func(i, j int) bool {
		ri, rj := lo.IndexOf(timeframes, tfs[i]), lo.IndexOf(timeframes, tfs[j])
		if ri < 0 {
			ri = len(timeframes)
		}
		if rj < 0 {
			rj = len(timeframes)
		}
		if ri != rj {
			return ri < rj
		}
		return tfs[i] < tfs[j]
	})
	for _, tf := range tfs {
		for _, cat := range model.Categories {
			ids := s[tf][cat]
			if len(ids) == 0 {
				continue
			}
			b.WriteString(fmt.Sprintf("\n%s %s: %s", tf, cat, html.EscapeString(strings.Join(ids, ", "))))
		}
	}
	return b.String()
}

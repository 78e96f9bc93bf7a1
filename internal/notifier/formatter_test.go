package notifier

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChannelScout/internal/memory"
	"ChannelScout/internal/model"
)

var testOpts = ReportOptions{
	Timeframes: []string{"1h", "4h", "1d"},
	Caps: map[model.Category]int{
		model.CategoryComposite:   15,
		model.CategoryChannel:     7,
		model.CategoryVWMASupport: 15,
	},
	Location: time.UTC,
}

func report(matches ...model.Match) *model.Report {
	return &model.Report{
		RunID:     "r1",
		CreatedAt: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
		Matches:   matches,
	}
}

func TestFormatReport_Empty(t *testing.T) {
	assert.Empty(t, FormatReport(report(), testOpts))
	assert.Empty(t, FormatReport(nil, testOpts))
}

func TestFormatReport_TruncatesGroup(t *testing.T) {
	var matches []model.Match
	for i := 0; i < 20; i++ {
		matches = append(matches, model.Match{
			InstrumentID: fmt.Sprintf("C%02d", i),
			Timeframe:    "4h",
			Category:     model.CategoryVWMASupport,
			Value:        1.5,
		})
	}
	out := FormatReport(report(matches...), testOpts)

	var itemLines, moreLines int
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "🔥 4h |"):
			itemLines++
		case line == "...+5 more":
			moreLines++
		}
	}
	assert.Equal(t, 15, itemLines)
	assert.Equal(t, 1, moreLines)
	assert.Contains(t, out, "C14")
	assert.NotContains(t, out, "C15")
}

func TestFormatReport_OrderAndMarkers(t *testing.T) {
	out := FormatReport(report(
		model.Match{InstrumentID: "ETH", Timeframe: "1d", Category: model.CategoryVWMASupport, Value: 2.04},
		model.Match{InstrumentID: "SOL", Timeframe: "1h", Category: model.CategoryVWMASupport, Value: 0.5, IsDuplicate: true},
		model.Match{InstrumentID: "XRP", Timeframe: "4h", Category: model.CategoryChannel, Value: -1.3},
		model.Match{InstrumentID: "BTC", Timeframe: "4h", Category: model.CategoryComposite, Value: 7,
			Reasons: []string{"RSI oversold (25)", "MACD golden cross", "Volume spike"}},
	), testOpts)

	assert.True(t, strings.HasPrefix(out, "🦁 <b>Setup Scanner Report</b> (09:30)"))

	composite := strings.Index(out, "Composite setups")
	channel := strings.Index(out, "Channel bottom")
	vwma := strings.Index(out, "VWMA 100 support")
	require.True(t, composite >= 0 && channel >= 0 && vwma >= 0)
	assert.Less(t, composite, channel)
	assert.Less(t, channel, vwma)

	assert.Contains(t, out, "💎 <b>BTC</b> (4h) score 7 └ RSI oversold (25), MACD golden cross, Volume spike")
	assert.Contains(t, out, "🌊 4h | XRP (-1.3% off lower band)")
	assert.Contains(t, out, "💤 1h | SOL (+0.5%)")
	assert.Contains(t, out, "🔥 1d | ETH (+2.0%)")
	assert.Less(t, strings.Index(out, "SOL"), strings.Index(out, "ETH"), "1h group before 1d group")
}

func TestFormatReport_EscapesHTML(t *testing.T) {
	out := FormatReport(report(
		model.Match{InstrumentID: "A<B", Timeframe: "1h", Category: model.CategoryVWMASupport, Value: 1},
	), testOpts)
	assert.Contains(t, out, "A&lt;B")
}

func TestSplitMessage(t *testing.T) {
	assert.Nil(t, SplitMessage("", 10))
	assert.Equal(t, []string{"short"}, SplitMessage("short", 10))

	text := "aaaa\nbbbb\ncccc\ndd"
	chunks := SplitMessage(text, 9)
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc\ndd"}, chunks)
}

func TestSplitMessage_LongLineCountsUTF16(t *testing.T) {
	long := strings.Repeat("💎", 25)
	chunks := SplitMessage("head\n"+long+"\ntail", 10)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf16Len(c), 10)
		assert.True(t, utf8.ValidString(c))
	}
	assert.Equal(t, []string{
		"head",
		strings.Repeat("💎", 5),
		strings.Repeat("💎", 5),
		strings.Repeat("💎", 5),
		strings.Repeat("💎", 5),
		strings.Repeat("💎", 5),
		"tail",
	}, chunks)
}

func TestSplitMessage_MarkersStayUnderTelegramLimit(t *testing.T) {
	var matches []model.Match
	for i := 0; i < 600; i++ {
		matches = append(matches, model.Match{
			InstrumentID: fmt.Sprintf("C%03d", i),
			Timeframe:    "1h",
			Category:     model.CategoryVWMASupport,
			Value:        1.2,
		})
	}
	opts := testOpts
	opts.Caps = nil
	out := FormatReport(report(matches...), opts)

	chunks := SplitMessage(out, 4096)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf16Len(c), 4096)
	}
	assert.Less(t, utf8.RuneCountInString(chunks[0]), 4096, "markers take two units each")
	assert.Equal(t, out, strings.Join(chunks, "\n"))
}

func TestSplitMessage_RealReport(t *testing.T) {
	var matches []model.Match
	for i := 0; i < 300; i++ {
		matches = append(matches, model.Match{
			InstrumentID: fmt.Sprintf("COIN%03d", i),
			Timeframe:    "1h",
			Category:     model.CategoryComposite,
			Value:        6,
			Reasons:      []string{"CCI depressed", "MACD golden cross", "Key support"},
		})
	}
	opts := testOpts
	opts.Caps = nil
	out := FormatReport(report(matches...), opts)
	chunks := SplitMessage(out, 4000)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf16Len(c), 4000)
	}
	assert.Equal(t, out, strings.Join(chunks, "\n"))
}

func TestFormatStatus(t *testing.T) {
	assert.Equal(t, "No scan has run yet.", FormatStatus(nil, nil, nil))

	out := FormatStatus(&RunStatus{
		RunID:     "abc",
		State:     "DONE",
		StartedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		Duration:  95 * time.Second,
		Universe:  100,
		Scanned:   295,
		Skipped:   5,
		Report: report(
			model.Match{InstrumentID: "BTC", Timeframe: "4h", Category: model.CategoryVWMASupport},
			model.Match{InstrumentID: "ETH", Timeframe: "4h", Category: model.CategoryVWMASupport},
		),
	}, []string{"1h", "4h"}, time.UTC)
	assert.Contains(t, out, "State: DONE")
	assert.Contains(t, out, "<pre>")
	assert.Contains(t, strings.ToLower(out), "composite")
	assert.Contains(t, out, "pairs scanned 295, skipped 5")
}

func TestFormatMemory(t *testing.T) {
	assert.Equal(t, "🧠 Memory is empty.", FormatMemory(memory.Snapshot{}, nil))

	s := memory.Snapshot{}
	s.Add("1d", model.CategoryChannel, "ETH")
	s.Add("4h", model.CategoryVWMASupport, "BTC")
	s.Add("4h", model.CategoryVWMASupport, "SOL")
	out := FormatMemory(s, []string{"1h", "4h", "1d"})
	assert.Contains(t, out, "(3 entries)")
	assert.Contains(t, out, "4h vwma: BTC, SOL")
	assert.Less(t, strings.Index(out, "4h vwma"), strings.Index(out, "1d channel"))
}

package memory

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"

	"ChannelScout/internal/model"
)

// Snapshot is one generation of alert memory: timeframe -> category -> instrument IDs.
// It is persisted as {"1h": {"vwma": ["BTC"]}}.
type Snapshot map[string]map[model.Category][]string

// legacyComposite is the composite category name used by older state files.
const legacyComposite = "best"

// Contains reports whether id was recorded under (timeframe, category).
func (s Snapshot) Contains(timeframe string, category model.Category, id string) bool {
	return lo.Contains(s[timeframe][category], id)
}

// Add records id under (timeframe, category) once.
func (s Snapshot) Add(timeframe string, category model.Category, id string) {
	cats, ok := s[timeframe]
	if !ok {
		cats = make(map[model.Category][]string)
		s[timeframe] = cats
	}
	if !lo.Contains(cats[category], id) {
		cats[category] = append(cats[category], id)
	}
}

// Count returns the total number of recorded entries.
func (s Snapshot) Count() int {
	n := 0
	for _, cats := range s {
		for _, ids := range cats {
			n += len(ids)
		}
	}
	return n
}

// Encode serializes a snapshot in the canonical category-nested form.
func Encode(s Snapshot) ([]byte, error) {
	if s == nil {
		s = Snapshot{}
	}
	return json.Marshal(s)
}

// Decode parses persisted memory. Each timeframe entry is migrated from the
// older formats when needed: a flat ID list (VWMA-only scanner) becomes the
// vwma category, and the "best" category becomes composite. Unknown
// categories are dropped.
func Decode(data []byte) (Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode memory: %w", err)
	}
	snap := Snapshot{}
	for tf, body := range raw {
		cats, err := migrateTimeframe(body)
		if err != nil {
			return nil, fmt.Errorf("decode memory timeframe %q: %w", tf, err)
		}
		for cat, ids := range cats {
			for _, id := range ids {
				snap.Add(tf, cat, id)
			}
		}
	}
	return snap, nil
}

type entryFormat int

const (
	formatNested entryFormat = iota
	formatFlatList
)

func detectFormat(body json.RawMessage) (entryFormat, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return 0, fmt.Errorf("empty entry")
	}
	switch trimmed[0] {
	case '{':
		return formatNested, nil
	case '[':
		return formatFlatList, nil
	default:
		return 0, fmt.Errorf("unexpected entry %q", trimmed)
	}
}

func migrateTimeframe(body json.RawMessage) (map[model.Category][]string, error) {
	format, err := detectFormat(body)
	if err != nil {
		return nil, err
	}

	if format == formatFlatList {
		var ids []string
		if err := json.Unmarshal(body, &ids); err != nil {
			return nil, err
		}
		return map[model.Category][]string{model.CategoryVWMASupport: ids}, nil
	}

	var nested map[string][]string
	if err := json.Unmarshal(body, &nested); err != nil {
		return nil, err
	}
	out := make(map[model.Category][]string)
	for name, ids := range nested {
		cat := model.Category(name)
		if name == legacyComposite {
			cat = model.CategoryComposite
		}
		if !lo.Contains(model.Categories, cat) {
			continue
		}
		out[cat] = append(out[cat], ids...)
	}
	return out, nil
}

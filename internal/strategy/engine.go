package strategy

import "ChannelScout/internal/model"

// Policy holds the tunable thresholds of the evaluator.
type Policy struct {
	VWMAGapThreshold   float64
	CompositeThreshold int
}

// DefaultPolicy mirrors the most common deployment.
var DefaultPolicy = Policy{VWMAGapThreshold: 3.5, CompositeThreshold: 5}

// Evaluation is the full per-pair verdict before it is turned into matches.
type Evaluation struct {
	VWMASupport   bool
	VWMAGap       float64
	ChannelBottom bool
	ChannelGap    float64
	Score         int
	Reasons       []string
	Composite     bool
}

// Evaluate classifies the latest bar of a pair. prev is the bar before curr.
func Evaluate(curr, prev model.Snapshot, fit model.ChannelFit, p Policy) Evaluation {
	ev := Evaluation{
		ChannelBottom: fit.IsBottom,
		ChannelGap:    fit.GapPercent,
	}

	if model.Available(curr.VWMA) && curr.VWMA != 0 && curr.Close >= curr.VWMA {
		ev.VWMAGap = (curr.Close - curr.VWMA) / curr.VWMA * 100
		ev.VWMASupport = ev.VWMAGap <= p.VWMAGapThreshold
	}

	// order here is the display order of reasons
	factors := []factor{
		scoreRSI(curr),
		scoreCCI(curr),
		scoreMACD(curr, prev),
		scoreVolume(curr),
		scoreSupport(ev.VWMASupport || ev.ChannelBottom),
	}
	for _, f := range factors {
		ev.Score += f.Points
		if f.Reason != "" {
			ev.Reasons = append(ev.Reasons, f.Reason)
		}
	}
	ev.Composite = ev.Score >= p.CompositeThreshold

	return ev
}

// Matches turns an evaluation into zero or more matches for one pair.
// Categories are independent; one pair may produce all three.
func (ev Evaluation) Matches(instrumentID, timeframe string) []model.Match {
	var out []model.Match
	if ev.Composite {
		out = append(out, model.Match{
			InstrumentID: instrumentID,
			Timeframe:    timeframe,
			Category:     model.CategoryComposite,
			Value:        float64(ev.Score),
			Reasons:      ev.Reasons,
		})
	}
	if ev.ChannelBottom {
		out = append(out, model.Match{
			InstrumentID: instrumentID,
			Timeframe:    timeframe,
			Category:     model.CategoryChannel,
			Value:        ev.ChannelGap,
		})
	}
	if ev.VWMASupport {
		out = append(out, model.Match{
			InstrumentID: instrumentID,
			Timeframe:    timeframe,
			Category:     model.CategoryVWMASupport,
			Value:        ev.VWMAGap,
		})
	}
	return out
}

// EvaluateFrame evaluates the last two bars of a frame against its channel fit.
func EvaluateFrame(frame *model.IndicatorFrame, fit model.ChannelFit, p Policy) Evaluation {
	return Evaluate(frame.Last(), frame.Prev(), fit, p)
}

package strategy

import (
	"fmt"
	"math"

	"ChannelScout/internal/model"
)

// factor is one additive contribution to the composite score.
// An empty reason scores silently.
type factor struct {
	Points int
	Reason string
}

// scoreRSI: +2 below 30 (labelled), +1 below 40.
func scoreRSI(curr model.Snapshot) factor {
	if !model.Available(curr.RSI) {
		return factor{}
	}
	switch {
	case curr.RSI < 30:
		return factor{Points: 2, Reason: fmt.Sprintf("RSI oversold (%d)", int(math.Trunc(curr.RSI)))}
	case curr.RSI < 40:
		return factor{Points: 1}
	default:
		return factor{}
	}
}

// scoreCCI: +1 below -100.
func scoreCCI(curr model.Snapshot) factor {
	if model.Available(curr.CCI) && curr.CCI < -100 {
		return factor{Points: 1, Reason: "CCI depressed"}
	}
	return factor{}
}

// scoreMACD: +3 on a fresh cross above the signal line, +1 while above without a fresh cross.
func scoreMACD(curr, prev model.Snapshot) factor {
	if !model.Available(curr.MACD) || !model.Available(curr.MACDSignal) || curr.MACD <= curr.MACDSignal {
		return factor{}
	}
	if model.Available(prev.MACD) && model.Available(prev.MACDSignal) && prev.MACD <= prev.MACDSignal {
		return factor{Points: 3, Reason: "MACD golden cross"}
	}
	return factor{Points: 1}
}

// scoreVolume: +2 when volume exceeds twice its moving average.
func scoreVolume(curr model.Snapshot) factor {
	if model.Available(curr.VolumeMA) && curr.Volume > 2*curr.VolumeMA {
		return factor{Points: 2, Reason: "Volume spike"}
	}
	return factor{}
}

// scoreSupport: +2 when price sits on VWMA support or the channel bottom.
func scoreSupport(onSupport bool) factor {
	if onSupport {
		return factor{Points: 2, Reason: "Key support"}
	}
	return factor{}
}

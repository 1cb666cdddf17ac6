package market

import "sort"

// ComputeOFI returns the order flow imbalance between two consecutive book states.
//
//	ofi = Σ_curr.bids (qty - prev.bids[p]) - Σ_curr.asks (qty - prev.asks[p])
//
// Only price levels present in curr are visited: a level that was removed and did
// not reappear contributes nothing. Callers must not invoke it for the first
// observation of a session, there is no prev to compare with.
func ComputeOFI(prev, curr BookState) float64 {
	ofi := 0.0
	for p, q := range curr.Bids {
		ofi += q - prev.Bids[p]
	}
	for p, q := range curr.Asks {
		ofi -= q - prev.Asks[p]
	}
	return ofi
}

// CalculateImbalance calculates the imbalance between bid and ask volumes
// Imbalance = (BidVol - AskVol) / (BidVol + AskVol)
func CalculateImbalance(bidVolumeTop float64, askVolumeTop float64) float64 {
	totalVolume := bidVolumeTop + askVolumeTop
	if totalVolume == 0 {
		return 0
	}
	return (bidVolumeTop - askVolumeTop) / totalVolume
}

// TopImbalance calculates the depth imbalance over the best `levels` levels of each side.
func TopImbalance(book BookState, levels int) float64 {
	if levels <= 0 {
		return 0
	}
	bidVolume := 0.0
	for i, price := range sortedPrices(book.Bids, true) {
		if i >= levels {
			break
		}
		bidVolume += book.Bids[price]
	}
	askVolume := 0.0
	for i, price := range sortedPrices(book.Asks, false) {
		if i >= levels {
			break
		}
		askVolume += book.Asks[price]
	}
	return CalculateImbalance(bidVolume, askVolume)
}

func sortedPrices(side BookSide, desc bool) []float64 {
	prices := make([]float64, 0, len(side))
	for p := range side {
		prices = append(prices, p)
	}
	if desc {
		sort.Sort(sort.Reverse(sort.Float64Slice(prices)))
	} else {
		sort.Float64s(prices)
	}
	return prices
}

package aggregate

import (
	"adsinsight/internal/domain"
	"adsinsight/internal/normalize"
)

var outboundChannels = []struct {
	name   string
	column string
}{
	{"whatsapp", normalize.OutboundWhatsApp},
	{"website", normalize.OutboundWebsite},
	{"messaging", normalize.OutboundMessaging},
	{"form", normalize.OutboundForm},
}

// Outbound sums outbound clicks per channel and each channel's share of the
// total. Shares are 0 when there were no outbound clicks at all.
func Outbound(rows []domain.Row) []domain.OutboundShare {
	shares := make([]domain.OutboundShare, len(outboundChannels))
	var total float64
	for i, ch := range outboundChannels {
		shares[i].Channel = ch.name
		for _, row := range rows {
			shares[i].Clicks += normalize.ResolveNumber(row, ch.column)
		}
		total += shares[i].Clicks
	}

	if total > 0 {
		for i := range shares {
			shares[i].Percent = shares[i].Clicks / total * 100
		}
	}
	return shares
}

// OutboundTotal is the sum of every channel's clicks.
func OutboundTotal(shares []domain.OutboundShare) float64 {
	var total float64
	for _, s := range shares {
		total += s.Clicks
	}
	return total
}

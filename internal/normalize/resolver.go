package normalize

import (
	"fmt"
	"strings"

	"adsinsight/internal/domain"
)

// Canonical column names understood by the resolver.
const (
	Cost              = "cost"
	Impressions       = "impressions"
	Clicks            = "clicks"
	LinkClicks        = "link_clicks"
	WhatsAppLeads     = "whatsapp_leads"
	FacebookLeads     = "facebook_leads"
	LeadForm          = "lead_form"
	Messaging         = "messaging"
	Reach             = "reach"
	Frequency         = "frequency"
	OutboundWhatsApp  = "outbound_whatsapp"
	OutboundWebsite   = "outbound_website"
	OutboundMessaging = "outbound_messaging"
	OutboundForm      = "outbound_form"

	Adset    = "adset"
	Ad       = "ad"
	Age      = "age"
	Gender   = "gender"
	Region   = "region"
	Campaign = "campaign"
	Month    = "month"
)

// Aliases lists the accepted column spellings per canonical name, most
// specific first. Matching is case-insensitive and ignores surrounding space.
var Aliases = map[string][]string{
	Cost:              {"cost", "biaya", "amount spent", "spend"},
	Impressions:       {"impressions", "imp"},
	Clicks:            {"all clicks", "clicks all", "clicks"},
	LinkClicks:        {"link clicks", "link"},
	WhatsAppLeads:     {"whatsapp", "whatsapp leads"},
	FacebookLeads:     {"on-facebook leads", "facebook leads"},
	LeadForm:          {"lead form", "leadform"},
	Messaging:         {"messaging conversations started"},
	Reach:             {"reach"},
	Frequency:         {"frequency"},
	OutboundWhatsApp:  {"outbound clicks - whatsapp", "whatsapp clicks"},
	OutboundWebsite:   {"outbound clicks - website", "website clicks", "link clicks"},
	OutboundMessaging: {"outbound clicks - messaging", "messaging clicks"},
	OutboundForm:      {"outbound clicks - form", "form clicks"},

	Adset:    {"ad set", "adset", "ad_set", "ad set name", "adset name", "ad_set_name"},
	Ad:       {"ad", "ad name", "ad_name", "ads"},
	Age:      {"age", "umur", "usia"},
	Gender:   {"gender", "jenis kelamin", "sex"},
	Region:   {"region", "wilayah", "provinsi"},
	Campaign: {"campaign", "campaign name", "campaign_name", "kampanye"},
	Month:    {"month", "bulan"},
}

// Resolve returns the value of the first alias of name present in row, or
// def when none is. Names without an alias entry match themselves.
func Resolve(row domain.Row, name string, def any) any {
	aliases, ok := Aliases[name]
	if !ok {
		aliases = []string{name}
	}
	for _, alias := range aliases {
		want := domain.NormalizeLabel(alias)
		for i := 0; i < row.Len(); i++ {
			if row.KeyAt(i) == want {
				return row.ValueAt(i)
			}
		}
	}
	return def
}

// ResolveNumber resolves a metric column and parses it.
func ResolveNumber(row domain.Row, metric string) float64 {
	return Number(Resolve(row, metric, 0))
}

// ResolveLabel resolves a dimension column to its trimmed text, falling
// back to domain.UnknownKey for missing or blank values.
func ResolveLabel(row domain.Row, dimension string) string {
	v := Resolve(row, dimension, nil)
	if v == nil {
		return domain.UnknownKey
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return domain.UnknownKey
	}
	return s
}

package intent

import (
	"regexp"

	"adsinsight/internal/domain"
)

func anyOf(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

var (
	trendPattern = regexp.MustCompile(`(\d+)\s*bulan\s+terakhir|last\s+(\d+)\s+months?`)

	advicePatterns = anyOf(
		`\bcara\b`, `bagaimana`, `strategi`, `\btips\b`, `solusi`, `optimasi`, `efektif`,
		`menurunkan`, `menaikkan`, `rekomendasi`, `saran`, `langkah`, `upaya`,
		`apa yang (harus|bisa|paling)`, `bagusnya`, `baiknya`, `perbaikan`,
		`optimalkan`, `optimisasi`, `perlu (dilakukan|diperbaiki|diubah|ditingkatkan)`,
		`\bhow (to|can|should)\b`, `recommend`, `suggest`,
	)

	performancePatterns = anyOf(
		`performa`, `perform`, `\btrend\b`, `\btren\b`, `\bnaik\b`, `\bturun\b`, `stagnan`,
		`analisis`, `analisa`, `penyebab`, `alasan`, `kenapa`, `mengapa`, `penilaian`,
		`evaluasi`, `\bhasil\b`, `progress`, `perkembangan`, `perubahan`, `perbandingan`,
		`banding`, `kinerja`, `penurunan`, `peningkatan`, `penjelasan`, `analy[sz]`,
	)

	monthListingPatterns = anyOf(
		`data bulan`, `daftar bulan`, `\bperiode\b`, `bulan apa (saja|aja)`,
		`bulan yang (ada|tersedia)`, `bulan di data`, `periode apa`,
		`periode (tersedia|di data)`, `which months?`, `what months?`, `\bbulan\b`,
		`\b(january|february|march|april|june|july|august|september|october|november|december)\b`,
		`\b(januari|februari|maret|mei|juni|juli|agustus|oktober|desember)\b`,
	)

	highestPattern = regexp.MustCompile(`tertinggi|terbesar|terbanyak|termahal|teratas|\bhighest\b|\btop\b|\bmost\b|\bbiggest\b|paling (tinggi|besar|banyak|mahal)`)
	lowestPattern  = regexp.MustCompile(`terendah|terkecil|tersedikit|termurah|terbawah|\blowest\b|\bbottom\b|\bleast\b|\bcheapest\b|paling (rendah|kecil|sedikit|murah)`)

	topNPattern = regexp.MustCompile(`\btop\s*(\d{1,2})\b|\b(\d{1,2})\s*(?:teratas|terbawah|tertinggi|terendah|terbesar|terkecil|terbanyak)`)

	weekPattern  = regexp.MustCompile(`(?:minggu|pekan)\s*(?:ke)?\s*-?\s*(\d)\b|\bweek\s*-?\s*(\d)\b`)
	yearPattern  = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	agePattern   = regexp.MustCompile(`(?:^|[^\d-])(\d{2}-\d{2}|\d{2}\+)(?:$|[^\d-])`)
	femaleWords  = regexp.MustCompile(`\b(wanita|perempuan|female|cewek)\b`)
	maleWords    = regexp.MustCompile(`\b(pria|laki-laki|laki|male|cowok)\b`)
	adsetPattern = regexp.MustCompile(`(?i)\b(?:ad ?set|ad_set)\s+(?:"([^"]+)"|'([^']+)'|([\p{L}\d_\-]+))`)
	tokenPattern = regexp.MustCompile(`[\p{L}\d]+`)

	granularPatterns = anyOf(`harian`, `per hari`, `\bdaily\b`, `\btanggal\b`, `\bhari\b`, `\bdate\b`, `\bday\b`)
)

type dimensionWord struct {
	dimension domain.Dimension
	pattern   *regexp.Regexp
}

// adset must precede ad
var dimensionWords = []dimensionWord{
	{domain.DimensionAdset, regexp.MustCompile(`\bad ?sets?\b|\bad_set\b`)},
	{domain.DimensionAd, regexp.MustCompile(`\bads?\b|\biklan\b`)},
	{domain.DimensionRegion, regexp.MustCompile(`\bregion\b|\bwilayah\b|\bprovinsi\b|\bdaerah\b`)},
	{domain.DimensionAge, regexp.MustCompile(`\bage\b|\bumur\b|\busia\b`)},
	{domain.DimensionGender, regexp.MustCompile(`\bgender\b|jenis kelamin`)},
	{domain.DimensionCampaign, regexp.MustCompile(`\bcampaign\b|\bkampanye\b`)},
	{domain.DimensionWorksheet, regexp.MustCompile(`\bworksheet\b`)},
}

type metricWord struct {
	metric  domain.Metric
	pattern *regexp.Regexp
}

// specific phrases before the generic words they contain
var metricWords = []metricWord{
	{domain.MetricLeadForm, regexp.MustCompile(`lead ?form|formulir`)},
	{domain.MetricFacebookLeads, regexp.MustCompile(`(on-)?facebook leads?|\bfb leads?\b|\bleads? fb\b`)},
	{domain.MetricCPWA, regexp.MustCompile(`\bcpwa\b|(cost|biaya) per (wa|whatsapp)`)},
	{domain.MetricCPLC, regexp.MustCompile(`\bcplc\b|cost per link click`)},
	{domain.MetricCPC, regexp.MustCompile(`\bcpc\b|cost per click|biaya per klik`)},
	{domain.MetricCPM, regexp.MustCompile(`\bcpm\b`)},
	{domain.MetricLCTR, regexp.MustCompile(`\blctr\b|link ctr`)},
	{domain.MetricCTR, regexp.MustCompile(`\bctr\b`)},
	{domain.MetricConversion, regexp.MustCompile(`conversion|konversi`)},
	{domain.MetricLinkClicks, regexp.MustCompile(`link clicks?|klik link`)},
	{domain.MetricClicks, regexp.MustCompile(`\bclicks?\b|\bklik\b`)},
	{domain.MetricWhatsAppLeads, regexp.MustCompile(`whatsapp|\bwa\b`)},
	{domain.MetricMessaging, regexp.MustCompile(`messaging|\bpesan\b|percakapan`)},
	{domain.MetricLeads, regexp.MustCompile(`\bleads?\b|prospek`)},
	{domain.MetricFrequency, regexp.MustCompile(`frequency|frekuensi`)},
	{domain.MetricReach, regexp.MustCompile(`\breach\b|jangkauan`)},
	{domain.MetricImpressions, regexp.MustCompile(`impressions?|\bimpr?\b|tayangan`)},
	{domain.MetricCost, regexp.MustCompile(`\bcost\b|biaya|\bspend\b|pengeluaran|budget`)},
}

var topicPatterns = []struct {
	topic    domain.Topic
	patterns []*regexp.Regexp
}{
	{domain.TopicWorksheetBreakdown, anyOf(
		`(cost|biaya|clicks|klik|leads|ctr|impressions|reach|cpwa|avg|rata-rata|min|max) per (worksheet|tab|sheet)`,
		`total cost dari (worksheet|tab|sheet)`,
	)},
	{domain.TopicAdsetList, anyOf(
		`ad ?set apa`, `daftar ad ?set`, `ad ?set yang ada`, `list ad ?sets?`, `which ad ?sets`,
	)},
	{domain.TopicWorksheetInfo, anyOf(
		`jumlah baris`, `(worksheet|sheet|tab) apa (saja|aja)`, `(worksheet|sheet|tab) yang tersedia`,
		`(daftar|list) (worksheet|sheet)`, `berapa (banyak )?(worksheet|sheet)`, `struktur (worksheet|tab|data)`,
		`kolom apa (saja|aja)`, `kolom yang tersedia`, `data apa (saja|aja)`, `lembar kerja`,
	)},
}

// words that never name an ad set
var adsetStopwords = map[string]bool{
	"mana": true, "apa": true, "yang": true, "dengan": true, "ini": true, "itu": true,
	"untuk": true, "di": true, "ke": true, "dari": true, "pada": true, "dan": true,
	"atau": true, "saja": true, "aja": true, "paling": true, "per": true, "mana-mana": true,
	"nya": true, "terbaik": true, "terburuk": true, "name": true, "nama": true, "which": true,
	"with": true, "the": true, "has": true, "punya": true, "memiliki": true, "adalah": true,
	"tersebut": true, "lain": true, "semua": true, "all": true,

	// time words
	"bulan": true, "minggu": true, "pekan": true, "hari": true, "tahun": true, "tanggal": true,
	"kemarin": true, "terakhir": true, "lalu": true, "sekarang": true, "month": true,
	"week": true, "day": true, "year": true, "today": true, "last": true, "this": true,

	// pronouns and fillers
	"kami": true, "saya": true, "kita": true, "aku": true, "anda": true, "kamu": true,
	"mereka": true, "our": true, "my": true, "your": true, "secara": true, "keseluruhan": true,
	"sama": true, "sekali": true, "juga": true, "dong": true,
}

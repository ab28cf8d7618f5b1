package fred

// Series maps a FRED series ID to the panel column it populates.
type Series struct {
	ID     string
	Column string
}

// DefaultSeries returns the FRED series the signal library reads.
// The traded asset is not on FRED and is ingested from a CSV file.
func DefaultSeries() []Series {
	return []Series{
		{ID: "BAMLH0A0HYM2", Column: "hy_oas"},
		{ID: "BAMLC0A0CM", Column: "ig_oas"},
		{ID: "BAMLH0A1HYBB", Column: "bb_hy_oas"},
		{ID: "BAMLH0A3HYC", Column: "ccc_hy_oas"},
		{ID: "BAMLC0A4CBBB", Column: "bbb_oas"},
		{ID: "VIXCLS", Column: "vix"},
		{ID: "VXVCLS", Column: "vix3m"},
		{ID: "DGS10", Column: "dgs10"},
		{ID: "DGS2", Column: "dgs2"},
		{ID: "DTB3", Column: "dtb3"},
		{ID: "DFF", Column: "fed_funds_rate"},
		{ID: "NFCI", Column: "nfci"},
		{ID: "STLFSI4", Column: "fsi"},
		{ID: "ICSA", Column: "initial_claims"},
	}
}

// Lookup returns the series with the given FRED ID or panel column.
func Lookup(key string) (Series, bool) {
	for _, s := range DefaultSeries() {
		if s.ID == key || s.Column == key {
			return s, true
		}
	}
	return Series{}, false
}

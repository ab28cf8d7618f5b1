package signals

// Sourced columns.
const (
	ColHYOAS      = "hy_oas"
	ColIGOAS      = "ig_oas"
	ColBBHYOAS    = "bb_hy_oas"
	ColCCCHYOAS   = "ccc_hy_oas"
	ColBBBOAS     = "bbb_oas"
	ColVIX        = "vix"
	ColVIX3M      = "vix3m"
	ColDGS10      = "dgs10"
	ColDGS2       = "dgs2"
	ColDTB3       = "dtb3"
	ColNFCI       = "nfci"
	ColDefaultSPY = "spy"
)

// Derived columns.
const (
	ColSpread          = "hy_ig_spread"
	ColZScore252       = "hy_ig_zscore_252d"
	ColZScore504       = "hy_ig_zscore_504d"
	ColPctRank504      = "hy_ig_pctrank_504d"
	ColPctRank1260     = "hy_ig_pctrank_1260d"
	ColROC21           = "hy_ig_roc_21d"
	ColROC63           = "hy_ig_roc_63d"
	ColROC126          = "hy_ig_roc_126d"
	ColMom21           = "hy_ig_mom_21d"
	ColMom63           = "hy_ig_mom_63d"
	ColMom252          = "hy_ig_mom_252d"
	ColAcceleration    = "hy_ig_acceleration"
	ColRealizedVol21   = "hy_ig_realized_vol_21d"
	ColCCCBBSpread     = "ccc_bb_spread"
	ColBBBIGSpread     = "bbb_ig_spread"
	ColVIXTermStruct   = "vix_term_structure"
	ColYieldSpread10y3 = "yield_spread_10y3m"
	ColYieldSpread10y2 = "yield_spread_10y2y"
	ColNFCIMomentum    = "nfci_momentum_13w"
	ColComposite       = "composite_zscore_vts"
)

// External regime-probability columns.
const (
	ColHMMStressProb = "hmm_2state_prob_stress"
	ColMSStressProb  = "ms_2state_stress_prob"
	ColClassifier    = "rf_prob"
)

package validation

import (
	"context"
	"math"
	"testing"
	"time"

	"credit-signal-lab/internal/backtest"
	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/fixtures"
	"credit-signal-lab/internal/metrics"
	"credit-signal-lab/internal/panel"
	"credit-signal-lab/internal/signals"
	"credit-signal-lab/internal/strategy"
	"credit-signal-lab/internal/threshold"
)

func syntheticSuite(t *testing.T) *Suite {
	t.Helper()
	p, err := fixtures.Derived(fixtures.Options{
		Start: time.Date(2006, 1, 2, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2022, 12, 30, 0, 0, 0, 0, time.UTC),
		Seed:  9,
	})
	if err != nil {
		t.Fatalf("fixtures: %v", err)
	}
	r, err := backtest.NewRunner(p, signals.ColDefaultSPY, backtest.DefaultSplit())
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	cfg := DefaultConfig()
	cfg.BootstrapResamples = 500
	return NewSuite(r, signals.DefaultCatalog(), cfg, nil)
}

func TestBootstrapSharpe_StrongMeanIsSignificant(t *testing.T) {
	returns := make([]float64, 750)
	for i := range returns {
		// mean 0.002, std ~0.01: annualized Sharpe near 3
		if i%2 == 0 {
			returns[i] = 0.012
		} else {
			returns[i] = -0.008
		}
	}
	sum := BootstrapSharpe(returns, 2000, 42)
	if sum.PValue < 0 || sum.PValue > 1 {
		t.Fatalf("p-value out of bounds: %v", sum.PValue)
	}
	if sum.PValue >= 0.01 {
		t.Errorf("expected p < 0.01, got %v", sum.PValue)
	}
	if !(sum.CILower <= sum.Mean && sum.Mean <= sum.CIUpper) {
		t.Errorf("mean %v outside CI [%v, %v]", sum.Mean, sum.CILower, sum.CIUpper)
	}
}

func TestBootstrapSharpe_PValueFallsAsMeanRises(t *testing.T) {
	build := func(mean float64) []float64 {
		out := make([]float64, 500)
		for i := range out {
			if i%2 == 0 {
				out[i] = mean + 0.01
			} else {
				out[i] = mean - 0.01
			}
		}
		return out
	}
	weak := BootstrapSharpe(build(0.0002), 1000, 7)
	strong := BootstrapSharpe(build(0.0015), 1000, 7)
	if strong.PValue > weak.PValue {
		t.Errorf("expected p-value to fall with the mean: weak %v strong %v", weak.PValue, strong.PValue)
	}
}

func TestBootstrapSharpe_SeededAndDegenerate(t *testing.T) {
	r := []float64{0.01, -0.02, 0.005, 0.003, -0.001, 0.02, -0.004, 0.0, 0.007, -0.01}
	a := BootstrapSharpe(r, 300, 42)
	b := BootstrapSharpe(r, 300, 42)
	if a != b {
		t.Error("same seed must reproduce the same summary")
	}

	flat := make([]float64, 40)
	sum := BootstrapSharpe(flat, 100, 1)
	if sum.Mean != 0 || sum.PValue != 1 {
		t.Errorf("zero-dispersion draws score 0: mean %v p %v", sum.Mean, sum.PValue)
	}
}

func TestBreakevenBps_ZeroesNetReturn(t *testing.T) {
	n := 400
	gross := make([]float64, n)
	trades := make([]float64, n)
	for i := range gross {
		gross[i] = 0.0004 + 0.01*math.Sin(float64(i))
		if i%25 == 0 {
			trades[i] = 1
		}
	}
	bps, rate, mu := BreakevenBps(gross, trades)
	if math.Abs(mu-(bps/10000)*rate) > 1e-15 {
		t.Errorf("breakeven identity violated: mu=%v bps=%v rate=%v", mu, bps, rate)
	}
	net := NetReturns(gross, trades, bps)
	if math.Abs(metrics.AnnualizedReturn(net)) > 1e-12 {
		t.Errorf("net annualized return at breakeven should be 0, got %v", metrics.AnnualizedReturn(net))
	}

	bps, _, _ = BreakevenBps(gross, make([]float64, n))
	if !math.IsInf(bps, 1) {
		t.Errorf("expected +Inf breakeven without trades, got %v", bps)
	}
}

// A 0/1 signal alternating every 30 days for 3 years: Long/Cash earns the
// calm return on days following a calm day and nothing otherwise.
func TestRoundTrip_LongCashEarnsCalmDaysOnly(t *testing.T) {
	dates := panel.BusinessDays(time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2017, 12, 31, 0, 0, 0, 0, time.UTC))
	n := len(dates)
	p, err := panel.New(dates)
	if err != nil {
		t.Fatalf("panel: %v", err)
	}

	const calmRet, stressRet = 0.001, -0.002
	sig := make([]float64, n)
	price := make([]float64, n)
	price[0] = 100
	for i := range sig {
		if (i/30)%2 == 1 {
			sig[i] = 1
		}
		if i > 0 {
			r := calmRet
			if sig[i-1] == 1 {
				r = stressRet
			}
			price[i] = price[i-1] * (1 + r)
		}
	}
	_ = p.AddColumn("regime_signal", sig)
	_ = p.AddColumn("asset", price)

	spec := signals.Spec{
		ID: "RT", Column: "regime_signal",
		Polarity: domain.PolarityStressHigh, Kind: domain.KindProbability,
		Methods: threshold.ConstantMethods(0.5),
	}
	catalog, err := signals.NewCatalog(spec)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	split := backtest.Split{
		InSampleEnd:      time.Date(2016, 12, 31, 0, 0, 0, 0, time.UTC),
		OutOfSampleStart: time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	runner, err := backtest.NewRunner(p, "asset", split)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	rec, err := runner.Reconstruct(catalog, domain.Configuration{
		SignalID: "RT", ThresholdID: "CONST_0.50", Family: domain.FamilyLongCash,
	})
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}

	calmDays := 0
	for i := 1; i < n; i++ {
		if sig[i-1] == 0 {
			calmDays++
		}
	}
	want := float64(calmDays) * calmRet / float64(n-1) * 252
	got := metrics.Compute(rec.Returns).AnnReturn
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("expected annualized return %v, got %v", want, got)
	}

	// One position change per 30-day block.
	trades := 0
	for _, v := range rec.Trades {
		if v > 0 {
			trades++
		}
	}
	if want := (n - 1) / 30; trades != want {
		t.Errorf("expected %d trades, got %d", want, trades)
	}
}

func TestWalkForward_MatchesDirectSlice(t *testing.T) {
	s := syntheticSuite(t)
	cfg := domain.Configuration{SignalID: "S2a", LeadTime: 1, ThresholdID: "BAND_2.0", Family: domain.FamilyLongCash}
	rec, err := s.runner.Reconstruct(s.catalog, cfg)
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}

	rows := s.WalkForward("r", rec)
	if len(rows) == 0 {
		t.Fatal("expected walk-forward rows")
	}
	for _, row := range rows {
		var vals []float64
		for i, d := range rec.Dates {
			if d.Year() == row.Year && !math.IsNaN(rec.Returns[i]) {
				vals = append(vals, rec.Returns[i])
			}
		}
		mean := 0.0
		for _, v := range vals {
			mean += v
		}
		mean /= float64(len(vals))
		ss := 0.0
		for _, v := range vals {
			ss += (v - mean) * (v - mean)
		}
		std := math.Sqrt(ss / float64(len(vals)-1))
		want := mean * 252 / (std * math.Sqrt(252))
		if math.Abs(row.Sharpe-want) > 1e-9 {
			t.Errorf("year %d: expected Sharpe %v, got %v", row.Year, want, row.Sharpe)
		}
		if row.Days != len(vals) || row.Days < 50 {
			t.Errorf("year %d: unexpected day count %d", row.Year, row.Days)
		}
	}
}

func TestSuiteRun_ProducesEveryTable(t *testing.T) {
	s := syntheticSuite(t)
	cfg := domain.Configuration{SignalID: "S1", LeadTime: 1, ThresholdID: "ROLL_Q85", Family: domain.FamilyLongCash}

	report, err := s.Run(context.Background(), "run-v", []domain.Configuration{cfg})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.WalkForward) == 0 || len(report.Bootstrap) != 1 || len(report.Breakeven) != 1 {
		t.Fatalf("missing tables: %d wf, %d boot, %d breakeven",
			len(report.WalkForward), len(report.Bootstrap), len(report.Breakeven))
	}
	if len(report.TransactionCosts) != 5 {
		t.Errorf("expected 5 cost rows, got %d", len(report.TransactionCosts))
	}
	if len(report.Decay) != 6 {
		t.Errorf("expected 6 decay rows, got %d", len(report.Decay))
	}
	for _, d := range report.Decay {
		if d.TotalLead != cfg.LeadTime+d.ExtraDelay || d.Configuration != cfg {
			t.Errorf("decay row mislabeled: %+v", d)
		}
	}

	windows := map[string]bool{}
	for _, row := range report.Stress {
		windows[row.Window] = true
	}
	for _, w := range []string{domain.StressGFC, domain.StressCOVID, domain.StressTaperTantrum, domain.StressRateShock, domain.StressFullOOS} {
		if !windows[w] {
			t.Errorf("expected stress window %s", w)
		}
	}

	// Zero cost reproduces the out-of-sample Sharpe.
	rec, _ := s.runner.Reconstruct(s.catalog, cfg)
	oos := metrics.Compute(rec.OutOfSampleReturns())
	for _, row := range report.TransactionCosts {
		if row.CostBps == 0 && math.Abs(row.Sharpe-oos.Sharpe) > 1e-12 {
			t.Errorf("0 bps Sharpe %v differs from OOS Sharpe %v", row.Sharpe, oos.Sharpe)
		}
	}
	for i := 1; i < len(report.TransactionCosts); i++ {
		if report.TransactionCosts[i].AnnReturn > report.TransactionCosts[i-1].AnnReturn {
			t.Error("net return must not rise with cost")
		}
	}
}

func TestTransactionCosts_FirstOOSDayCounts(t *testing.T) {
	s := syntheticSuite(t)
	rec, err := s.runner.Reconstruct(s.catalog, domain.Configuration{
		SignalID: "S1", LeadTime: 0, ThresholdID: "BAND_1.5", Family: domain.FamilyLongShort,
	})
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	lagged := rec.LaggedTrades()
	_, breakeven := s.TransactionCosts("r", rec)

	sum := 0.0
	for _, v := range lagged[rec.OutOfSampleStart:] {
		sum += v
	}
	want := sum / float64(len(lagged)-rec.OutOfSampleStart)
	if math.Abs(breakeven.TradeRate-want) > 1e-15 {
		t.Errorf("expected trade rate %v, got %v", want, breakeven.TradeRate)
	}
}

// A long -> undefined -> flat change is charged on the first day the flat
// position earns a return.
func TestNetReturns_ChargesChangeAcrossGap(t *testing.T) {
	nan := math.NaN()
	positions := []float64{1, 1, nan, 0, 0, nan, 1, 1}
	asset := []float64{0, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01}
	rec := &backtest.Reconstruction{
		Positions:    positions,
		AssetReturns: asset,
		Returns:      strategy.ApplyNextDay(positions, asset),
		Trades:       strategy.TradeIndicator(positions),
	}
	net := NetReturns(rec.Returns, rec.LaggedTrades(), 10)

	charged := map[int]float64{4: -0.001, 7: 0.01 - 0.001}
	for i, want := range charged {
		if math.Abs(net[i]-want) > 1e-15 {
			t.Errorf("day %d: expected %v, got %v", i, want, net[i])
		}
	}
	if got := strategy.CountTrades(rec.Trades, 0, len(rec.Trades)); got != 2 {
		t.Errorf("expected 2 trades, got %d", got)
	}
}

func TestBootstrapSharpe_DrawsUsePopulationStd(t *testing.T) {
	// mean 0.01, population std 0.01 (sample std would be 0.01*sqrt(2))
	if got, want := drawSharpe([]float64{0.02, 0}), math.Sqrt(252); math.Abs(got-want) > 1e-12 {
		t.Errorf("expected %v, got %v", want, got)
	}
	if got := drawSharpe([]float64{0.5, 0.5, 0.5}); got != 0 {
		t.Errorf("expected 0 for a flat draw, got %v", got)
	}
}

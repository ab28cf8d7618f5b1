package signals

import (
	"math"
	"strings"
	"testing"
	"time"

	"credit-signal-lab/internal/domain"
	"credit-signal-lab/internal/panel"
)

func testPanel(t *testing.T, n int) *panel.Panel {
	t.Helper()
	start := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := panel.BusinessDays(start, start.AddDate(10, 0, 0))[:n]
	p, err := panel.New(dates)
	if err != nil {
		t.Fatalf("new panel: %v", err)
	}
	return p
}

func wave(n int, base, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base + amp*math.Sin(float64(i)/17)
	}
	return out
}

func TestDefaultCatalog_Shape(t *testing.T) {
	c := DefaultCatalog()
	if c.Len() != 17 {
		t.Fatalf("expected 17 signals, got %d", c.Len())
	}

	s9, ok := c.Get("S9")
	if !ok {
		t.Fatal("S9 missing")
	}
	if s9.Polarity != domain.PolarityBullishHigh || s9.Kind != domain.KindProbability {
		t.Errorf("S9 should be a bullish probability, got %s/%s", s9.Polarity, s9.Kind)
	}
	if len(s9.Methods) != 3 {
		t.Errorf("S9 expected 3 constant thresholds, got %d", len(s9.Methods))
	}

	s6, _ := c.Get("S6")
	if len(s6.Methods) != 2 || s6.Methods[1].ID() != "CONST_0.70" {
		t.Errorf("S6 thresholds unexpected: %v", s6.Methods)
	}

	s1, _ := c.Get("S1")
	if len(s1.Methods) != 9 || s1.Polarity != domain.PolarityStressHigh {
		t.Errorf("S1 expected 9 level thresholds, stress-high")
	}
}

func TestNewCatalog_RejectsDuplicates(t *testing.T) {
	s := DefaultCatalog().Specs()[0]
	if _, err := NewCatalog(s, s); err == nil {
		t.Fatal("expected duplicate error")
	}
	bad := s
	bad.Methods = nil
	if _, err := NewCatalog(bad); err == nil {
		t.Fatal("expected error for spec without methods")
	}
}

func TestResolve_SkipsAbsentRegimeInputs(t *testing.T) {
	n := 300
	p := testPanel(t, n)
	_ = p.SetColumn(ColHYOAS, wave(n, 5, 1))
	_ = p.SetColumn(ColIGOAS, wave(n, 1.5, 0.2))

	if _, err := Derive(p); err != nil {
		t.Fatalf("derive: %v", err)
	}

	eligible, skipped := DefaultCatalog().Resolve(p)
	ids := map[string]bool{}
	for _, s := range eligible {
		ids[s.ID] = true
	}
	if !ids["S1"] || !ids["S10"] {
		t.Errorf("expected S1 and S10 eligible, got %v", ids)
	}
	// 1260d percentile rank cannot be computed on 300 rows.
	if ids["S3b"] {
		t.Error("S3b should be skipped when entirely undefined")
	}

	reasons := map[string]string{}
	for _, s := range skipped {
		reasons[s.SignalID] = s.Reason
	}
	for _, id := range []string{"S6", "S7", "S9"} {
		if !strings.Contains(reasons[id], "regime input") {
			t.Errorf("%s: unexpected skip reason %q", id, reasons[id])
		}
	}
	if len(eligible)+len(skipped) != 17 {
		t.Errorf("resolve must partition the catalog")
	}
}

func TestDerive_SpreadAndMomentum(t *testing.T) {
	n := 100
	p := testPanel(t, n)
	hy := wave(n, 5, 1)
	ig := wave(n, 1.5, 0.2)
	_ = p.SetColumn(ColHYOAS, hy)
	_ = p.SetColumn(ColIGOAS, ig)

	report, err := Derive(p)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if _, ok := report.Skipped[ColCCCBBSpread]; !ok {
		t.Error("expected CCC-BB spread skipped without inputs")
	}

	spread, _ := p.Column(ColSpread)
	if math.Abs(spread[10]-(hy[10]-ig[10])) > 1e-12 {
		t.Errorf("spread mismatch at 10")
	}
	mom, _ := p.Column(ColMom21)
	if !math.IsNaN(mom[20]) {
		t.Errorf("expected NaN momentum before 21 rows")
	}
	if math.Abs(mom[50]-(spread[50]-spread[29])) > 1e-12 {
		t.Errorf("momentum mismatch at 50")
	}
	roc, _ := p.Column(ColROC21)
	want := (spread[50]/spread[29] - 1) * 100
	if math.Abs(roc[50]-want) > 1e-9 {
		t.Errorf("roc mismatch: got %v want %v", roc[50], want)
	}
}

func TestDerive_KeepsPrecomputedColumn(t *testing.T) {
	n := 50
	p := testPanel(t, n)
	pre := wave(n, 0, 1)
	_ = p.SetColumn(ColComposite, pre)

	if _, err := Derive(p); err != nil {
		t.Fatalf("derive: %v", err)
	}
	got, _ := p.Column(ColComposite)
	if got[7] != pre[7] {
		t.Error("precomputed composite should be left untouched")
	}
}

func TestComposite_NegatesTermStructure(t *testing.T) {
	z := []float64{1, 2, 3, math.NaN()}
	vts := []float64{1, 2, 3}
	vts = append(vts, 2)
	out := Composite(z, vts)
	// z standardizes to -1, 0, 1; vts has mean 2 and std sqrt(2/3).
	sd := math.Sqrt(2.0 / 3.0)
	want := []float64{0.5*-1 - 0.5*(-1/sd), 0, 0.5*1 - 0.5*(1/sd)}
	for i, w := range want {
		if math.Abs(out[i]-w) > 1e-12 {
			t.Errorf("index %d: got %v want %v", i, out[i], w)
		}
	}
	if !math.IsNaN(out[3]) {
		t.Error("undefined leg should give undefined composite")
	}
}

func TestDeriveForwardReturns(t *testing.T) {
	n := 300
	p := testPanel(t, n)
	px := make([]float64, n)
	for i := range px {
		px[i] = 100 * math.Pow(1.001, float64(i))
	}
	_ = p.SetColumn(ColDefaultSPY, px)
	if err := DeriveForwardReturns(p, ColDefaultSPY); err != nil {
		t.Fatalf("forward returns: %v", err)
	}
	fwd, ok := p.Column("spy_fwd_5d")
	if !ok {
		t.Fatal("spy_fwd_5d missing")
	}
	if math.Abs(fwd[0]-(math.Pow(1.001, 5)-1)) > 1e-12 {
		t.Errorf("unexpected forward return %v", fwd[0])
	}
	if !math.IsNaN(fwd[n-1]) {
		t.Error("last forward return should be undefined")
	}
}

func TestRegimeInputs_Attach(t *testing.T) {
	p := testPanel(t, 10)
	obs := []*domain.Observation{
		{Series: ColClassifier, Date: p.Date(3), Value: 0.8},
		{Series: ColClassifier, Date: p.Date(1), Value: 0.4},
	}
	attached, err := RegimeInputs{Classifier: Some(obs), HMMStress: None()}.Attach(p)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if len(attached) != 1 || attached[0] != ColClassifier {
		t.Fatalf("unexpected attached columns %v", attached)
	}
	col, _ := p.Column(ColClassifier)
	if col[1] != 0.4 || col[3] != 0.8 || !math.IsNaN(col[2]) {
		t.Errorf("unexpected aligned values %v", col)
	}
	if p.Has(ColHMMStressProb) {
		t.Error("absent input should not create a column")
	}
}

func TestReadObservationsCSV(t *testing.T) {
	in := "date,value\n2020-01-03,0.5\n2020-01-02,.\n"
	obs, err := ReadObservationsCSV(strings.NewReader(in), ColMSStressProb)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(obs))
	}
	if !obs[0].Date.Before(obs[1].Date) {
		t.Error("observations should be sorted")
	}
	if !math.IsNaN(obs[0].Value) || obs[1].Value != 0.5 {
		t.Errorf("unexpected values %v %v", obs[0].Value, obs[1].Value)
	}

	if _, err := ReadObservationsCSV(strings.NewReader("2020-01-02,0.1\nbad,0.2\n"), "x"); err == nil {
		t.Error("expected error for malformed date after first line")
	}
}

package observability

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCombinationScored(t *testing.T) {
	scored := testutil.ToFloat64(DefaultMetrics.CombinationsScored)
	valid := testutil.ToFloat64(DefaultMetrics.ValidConfigurations)

	RecordCombinationScored(true)
	RecordCombinationScored(false)

	if got := testutil.ToFloat64(DefaultMetrics.CombinationsScored) - scored; got != 2 {
		t.Errorf("expected 2 scored, got %v", got)
	}
	if got := testutil.ToFloat64(DefaultMetrics.ValidConfigurations) - valid; got != 1 {
		t.Errorf("expected 1 valid, got %v", got)
	}
}

func TestRecordDBQuery_CountsErrors(t *testing.T) {
	c := DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "insert_run")
	before := testutil.ToFloat64(c)
	RecordDBQuery("postgres", "insert_run", 0.01, nil)
	RecordDBQuery("postgres", "insert_run", 0.01, errors.New("boom"))
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("expected 1 error, got %v", got)
	}
}

func TestHandler_ExposesNamespace(t *testing.T) {
	RecordCombinationSkipped("insufficient_in_sample")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "credit_signal_lab_tournament_combinations_skipped_total") {
		t.Error("expected tournament skip counter in exposition")
	}
}

package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveGenerationCountsByProviderAndOutcome(t *testing.T) {
	before := testutil.ToFloat64(generationsTotal.WithLabelValues("openai", OutcomeOK))
	ObserveGeneration("openai", OutcomeOK, 120*time.Millisecond)
	ObserveGeneration("openai", OutcomeOK, 80*time.Millisecond)
	if got := testutil.ToFloat64(generationsTotal.WithLabelValues("openai", OutcomeOK)) - before; got != 2 {
		t.Fatalf("generations delta = %v, want 2", got)
	}
}

func TestObserveValidationSplitsOutcomes(t *testing.T) {
	valid := testutil.ToFloat64(validationsTotal.WithLabelValues(OutcomeValid))
	rejected := testutil.ToFloat64(validationsTotal.WithLabelValues(OutcomeRejected))
	ObserveValidation(true)
	ObserveValidation(false)
	ObserveValidation(false)
	if got := testutil.ToFloat64(validationsTotal.WithLabelValues(OutcomeValid)) - valid; got != 1 {
		t.Fatalf("valid delta = %v", got)
	}
	if got := testutil.ToFloat64(validationsTotal.WithLabelValues(OutcomeRejected)) - rejected; got != 2 {
		t.Fatalf("rejected delta = %v", got)
	}
}

func TestObserveExecutionCountsRowsOnlyOnSuccess(t *testing.T) {
	rows := testutil.ToFloat64(executionRowsTotal)
	failures := testutil.ToFloat64(executionsTotal.WithLabelValues(OutcomeError))
	ObserveExecution(7, 10*time.Millisecond, nil)
	ObserveExecution(100, time.Millisecond, errors.New("boom"))
	if got := testutil.ToFloat64(executionRowsTotal) - rows; got != 7 {
		t.Fatalf("rows delta = %v, want 7", got)
	}
	if got := testutil.ToFloat64(executionsTotal.WithLabelValues(OutcomeError)) - failures; got != 1 {
		t.Fatalf("failure delta = %v", got)
	}
}

func TestObserveCatalogRefreshKeepsGaugeOnError(t *testing.T) {
	ObserveCatalogRefresh(3, nil)
	ObserveCatalogRefresh(0, errors.New("list tables"))
	if got := testutil.ToFloat64(catalogTables); got != 3 {
		t.Fatalf("catalog tables = %v, want 3", got)
	}
}

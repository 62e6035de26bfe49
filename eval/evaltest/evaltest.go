// Package evaltest runs eval assertions inside Go tests.
package evaltest

import (
	"context"
	"errors"
	"testing"

	"github.com/evalkit/relevancy-go/eval"
)

// Assert measures c with every metric and fails t if any metric scores below
// its threshold. A metric that cannot score at all is reported separately, so
// a broken model connection never reads as an irrelevant answer.
func Assert(t testing.TB, c eval.Case, metrics ...eval.Metric) {
	t.Helper()
	AssertContext(context.Background(), t, c, metrics...)
}

// AssertContext is Assert with an explicit context.
func AssertContext(ctx context.Context, t testing.TB, c eval.Case, metrics ...eval.Metric) {
	t.Helper()
	report(t, eval.Assert(ctx, c, metrics...))
}

// AssertWith is Assert using a configured evaluator.
func AssertWith(ctx context.Context, t testing.TB, e *eval.Evaluator, c eval.Case, metrics ...eval.Metric) {
	t.Helper()
	report(t, e.Assert(ctx, c, metrics...))
}

func report(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		return
	}
	var ae *eval.AssertionError
	if errors.As(err, &ae) {
		t.Fatalf("relevancy assertion failed: %v", ae)
		return
	}
	t.Fatalf("metric could not be evaluated: %v", err)
}

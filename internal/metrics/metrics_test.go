/*
 * Metrics collection test cases.
 *
 * Copyright 2026, The segcore Authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/segcore/segcore/internal/metrics"
)

func TestCountersIncrementAndAppearInHandlerOutput(t *testing.T) {
	m := metrics.New()
	m.InstExecuted("core-0")
	m.InstExecuted("core-0")
	m.CacheHit("core-0")
	m.CacheMiss("core-0")
	m.IRQDelivered("core-0")
	m.ExceptionRaised("core-0", "AccessViolation")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	out := string(body)

	require.True(t, strings.Contains(out, `segcore_instructions_executed_total{core="core-0"} 2`))
	require.True(t, strings.Contains(out, `segcore_icache_hits_total{core="core-0"} 1`))
	require.True(t, strings.Contains(out, `segcore_icache_misses_total{core="core-0"} 1`))
	require.True(t, strings.Contains(out, `segcore_irq_delivered_total{core="core-0"} 1`))
	require.True(t, strings.Contains(out, `segcore_exceptions_total{core="core-0",kind="AccessViolation"} 1`))
}

func TestIndependentInstancesDoNotShareCounters(t *testing.T) {
	a := metrics.New()
	b := metrics.New()
	a.InstExecuted("x")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, req)
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(body), "segcore_instructions_executed_total"))
}

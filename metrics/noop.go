// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import "net/http"

// noopMetrics hands out meters that drop every value.
type noopMetrics struct{}

func defaultNoopMetrics() Metrics { return &noopMetrics{} }

func (*noopMetrics) GetOrCreateCountMeter(string) CountMeter                 { return discard{} }
func (*noopMetrics) GetOrCreateCountVecMeter(string, []string) CountVecMeter { return discard{} }
func (*noopMetrics) GetOrCreateGaugeMeter(string) GaugeMeter                 { return discard{} }
func (*noopMetrics) GetOrCreateGaugeVecMeter(string, []string) GaugeVecMeter { return discard{} }

func (*noopMetrics) GetOrCreateHistogramMeter(string, []int64) HistogramMeter { return discard{} }

func (*noopMetrics) GetOrCreateHistogramVecMeter(string, []string, []int64) HistogramVecMeter {
	return discard{}
}

// GetOrCreateHandler answers 404, nothing is collected.
func (*noopMetrics) GetOrCreateHandler() http.Handler { return http.NotFoundHandler() }

// discard implements every meter interface.
type discard struct{}

func (discard) Add(int64)                                  {}
func (discard) Set(int64)                                  {}
func (discard) Observe(int64)                              {}
func (discard) AddWithLabel(int64, map[string]string)      {}
func (discard) SetWithLabel(int64, map[string]string)      {}
func (discard) ObserveWithLabels(int64, map[string]string) {}

// Copyright 2025 Sovereign Seas
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type stateMetrics struct {
	intentsTotal      *prometheus.CounterVec
	intentErrorsTotal *prometheus.CounterVec
	cursorBlock       prometheus.Gauge
}

func (s *State) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	s.metrics = &stateMetrics{
		intentsTotal: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seasledger_intents_total",
				Help: "total committed intents by kind",
			},
			[]string{"kind"},
		),
		intentErrorsTotal: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seasledger_intent_errors_total",
				Help: "total rejected intents by kind",
			},
			[]string{"kind"},
		),
		cursorBlock: promautoFactory.NewGauge(
			prometheus.GaugeOpts{
				Name: "seasledger_cursor_block",
				Help: "block number of the last processed intent",
			},
		),
	}
}

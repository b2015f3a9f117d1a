/*
 * This file is part of Loqa (https://github.com/loqalabs/loqa).
 * Copyright (C) 2025 Loqa Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes
const (
	OutcomeSuccess       = "success"
	OutcomeNotUnderstood = "not_understood"
	OutcomeBadRequest    = "bad_request"
	OutcomeError         = "error"
)

// Pipeline stages
const (
	StageTranscribe = "transcribe"
	StageRespond    = "respond"
	StageSynthesize = "synthesize"
)

// Translation directions
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loqa_support_requests_total",
		Help: "Audio requests by outcome",
	}, []string{"outcome"})

	IntentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loqa_support_intents_total",
		Help: "Resolved intents by detected language",
	}, []string{"intent", "language"})

	StageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loqa_support_stage_latency_seconds",
		Help:    "Latency of each pipeline stage",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	TranslationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loqa_support_translation_failures_total",
		Help: "Failed translations that fell back to the untranslated text",
	}, []string{"direction"})

	SynthesisFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loqa_support_synthesis_failures_total",
		Help: "Replies returned without audio because synthesis or storage failed",
	})

	AudioFilesSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loqa_support_audio_files_swept_total",
		Help: "Expired audio files removed by the retention janitor",
	})
)

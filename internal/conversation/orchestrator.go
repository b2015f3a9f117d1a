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

// Package conversation resolves a user's text into a reply in the user's language.
package conversation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/loqalabs/loqa-support/internal/intent"
	"github.com/loqalabs/loqa-support/internal/language"
	"github.com/loqalabs/loqa-support/internal/logging"
	"github.com/loqalabs/loqa-support/internal/metrics"
	"github.com/loqalabs/loqa-support/internal/security"
	"github.com/loqalabs/loqa-support/internal/translate"
)

// Reply is the orchestrator's answer to one utterance
type Reply struct {
	Text        string            `json:"text"`         // Reply in the user's language when translation succeeded
	Language    string            `json:"language"`     // Detected language of the input
	Intent      intent.IntentType `json:"intent"`
	EnglishText string            `json:"english_text"` // Canned reply before back-translation
	Translated  bool              `json:"translated"`   // Text was back-translated into Language
}

// Orchestrator detects the language, normalizes to English, resolves the
// canned reply and translates it back. Translation failures degrade to the
// untranslated text and never fail the request.
type Orchestrator struct {
	classifier language.Classifier
	translator translate.Translator
	resolver   intent.Resolver
}

// NewOrchestrator wires the pipeline. A nil translator behaves as one that
// always fails.
func NewOrchestrator(classifier language.Classifier, translator translate.Translator, resolver intent.Resolver) *Orchestrator {
	if classifier == nil {
		classifier = language.DevanagariClassifier{}
	}
	if resolver == nil {
		resolver = intent.NewKeywordResolver()
	}
	return &Orchestrator{
		classifier: classifier,
		translator: translator,
		resolver:   resolver,
	}
}

// Respond produces the reply for text
func (o *Orchestrator) Respond(ctx context.Context, text string) Reply {
	startTime := time.Now()
	defer func() {
		metrics.StageLatency.WithLabelValues(metrics.StageRespond).Observe(time.Since(startTime).Seconds())
	}()

	detected := o.classifier.Classify(text)

	englishInput := text
	if detected != language.English {
		if translated, ok := o.translate(ctx, text, detected, language.English, metrics.DirectionInbound); ok {
			englishInput = translated
		}
	}

	resolved := o.resolver.Resolve(englishInput)

	reply := Reply{
		Text:        resolved.Response,
		Language:    detected,
		Intent:      resolved.Type,
		EnglishText: resolved.Response,
	}

	if detected != language.English {
		if translated, ok := o.translate(ctx, resolved.Response, language.English, detected, metrics.DirectionOutbound); ok {
			reply.Text = translated
			reply.Translated = true
		}
	}

	metrics.IntentsTotal.WithLabelValues(string(reply.Intent), reply.Language).Inc()
	logging.LogInfo("Reply resolved",
		zap.String("component", "conversation"),
		zap.String("language", reply.Language),
		zap.String("intent", string(reply.Intent)),
		zap.String("trigger", resolved.Trigger),
		zap.Bool("translated", reply.Translated),
		zap.String("input", security.SanitizeLogInput(text)),
	)

	return reply
}

func (o *Orchestrator) translate(ctx context.Context, text, source, target, direction string) (string, bool) {
	if o.translator == nil {
		metrics.TranslationFailures.WithLabelValues(direction).Inc()
		logging.LogWarn("No translator configured, using untranslated text",
			zap.String("source", source),
			zap.String("target", target),
		)
		return "", false
	}

	translated, err := o.translator.Translate(ctx, text, source, target)
	if err != nil || translated == "" {
		metrics.TranslationFailures.WithLabelValues(direction).Inc()
		logging.LogWarn("Translation failed, using untranslated text",
			zap.String("source", source),
			zap.String("target", target),
			zap.Error(err),
		)
		return "", false
	}

	return translated, true
}

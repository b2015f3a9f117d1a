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

package conversation

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loqalabs/loqa-support/internal/intent"
	"github.com/loqalabs/loqa-support/internal/language"
	"github.com/loqalabs/loqa-support/internal/translate"
)

type translation struct {
	text, source, target string
}

// fakeTranslator answers from a lookup table and records every call
type fakeTranslator struct {
	table map[translation]string
	calls []translation
	fail  map[string]bool // keyed by target language
}

func (f *fakeTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	call := translation{text: text, source: source, target: target}
	f.calls = append(f.calls, call)
	if f.fail[target] {
		return "", fmt.Errorf("%w: service unavailable", translate.ErrTranslation)
	}
	if out, ok := f.table[call]; ok {
		return out, nil
	}
	return "", fmt.Errorf("%w: no fixture", translate.ErrTranslation)
}

const (
	hindiRecharge      = "मुझे रिचार्ज करना है"
	hindiRechargeReply = "रिचार्ज करने के लिए, कृपया हमारी वेबसाइट पर जाएं"
	rechargeReply      = "To recharge, please visit our website or say '199 plan' to activate the monthly pack."
)

func hindiFixtures() *fakeTranslator {
	return &fakeTranslator{table: map[translation]string{
		{text: hindiRecharge, source: "hi", target: "en"}: "I want to recharge",
		{text: rechargeReply, source: "en", target: "hi"}: hindiRechargeReply,
	}}
}

func TestOrchestrator_EnglishMakesNoTranslatorCalls(t *testing.T) {
	translator := hindiFixtures()
	o := NewOrchestrator(language.DevanagariClassifier{}, translator, intent.NewKeywordResolver())

	reply := o.Respond(context.Background(), "hello")

	assert.Equal(t, "Hello! Welcome to Telecom AI Support. How can I help you today?", reply.Text)
	assert.Equal(t, "en", reply.Language)
	assert.Equal(t, intent.IntentGreeting, reply.Intent)
	assert.False(t, reply.Translated)
	assert.Empty(t, translator.calls)
}

func TestOrchestrator_HindiRoundTrip(t *testing.T) {
	translator := hindiFixtures()
	o := NewOrchestrator(language.DevanagariClassifier{}, translator, intent.NewKeywordResolver())

	reply := o.Respond(context.Background(), hindiRecharge)

	assert.Equal(t, hindiRechargeReply, reply.Text)
	assert.Equal(t, "hi", reply.Language)
	assert.Equal(t, intent.IntentRecharge, reply.Intent)
	assert.Equal(t, rechargeReply, reply.EnglishText)
	assert.True(t, reply.Translated)
	require.Len(t, translator.calls, 2)
	assert.Equal(t, "en", translator.calls[0].target)
	assert.Equal(t, "hi", translator.calls[1].target)
}

func TestOrchestrator_BackTranslationFailureKeepsHindiTag(t *testing.T) {
	translator := hindiFixtures()
	translator.fail = map[string]bool{"hi": true}
	o := NewOrchestrator(language.DevanagariClassifier{}, translator, intent.NewKeywordResolver())

	reply := o.Respond(context.Background(), hindiRecharge)

	assert.Equal(t, rechargeReply, reply.Text)
	assert.Equal(t, "hi", reply.Language)
	assert.False(t, reply.Translated)
}

func TestOrchestrator_InboundFailureResolvesOriginalText(t *testing.T) {
	translator := &fakeTranslator{fail: map[string]bool{"en": true, "hi": true}}
	o := NewOrchestrator(language.DevanagariClassifier{}, translator, intent.NewKeywordResolver())

	reply := o.Respond(context.Background(), "मेरा balance बताओ")

	// Untranslated text still contains the English keyword
	assert.Equal(t, intent.IntentBalance, reply.Intent)
	assert.Equal(t, "Your current data balance is 1.5 GB and talktime is 50 Rupees.", reply.Text)
	assert.Equal(t, "hi", reply.Language)
	assert.Len(t, translator.calls, 2)
}

func TestOrchestrator_NilTranslatorAlwaysFails(t *testing.T) {
	o := NewOrchestrator(nil, nil, nil)

	reply := o.Respond(context.Background(), "नमस्ते")

	assert.Equal(t, intent.IntentUnknown, reply.Intent)
	assert.Equal(t, intent.FallbackResponse, reply.Text)
	assert.Equal(t, "hi", reply.Language)
	assert.False(t, reply.Translated)
}

func TestOrchestrator_EmptyText(t *testing.T) {
	translator := &fakeTranslator{}
	o := NewOrchestrator(language.DevanagariClassifier{}, translator, intent.NewKeywordResolver())

	reply := o.Respond(context.Background(), "")

	assert.Equal(t, intent.FallbackResponse, reply.Text)
	assert.Equal(t, "en", reply.Language)
	assert.Empty(t, translator.calls)
}

func TestOrchestrator_WithCachingTranslator(t *testing.T) {
	fixtures := hindiFixtures()
	cached, err := translate.NewCachingTranslator(fixtures, 16)
	require.NoError(t, err)
	o := NewOrchestrator(language.DevanagariClassifier{}, cached, intent.NewKeywordResolver())

	first := o.Respond(context.Background(), hindiRecharge)
	second := o.Respond(context.Background(), hindiRecharge)

	assert.Equal(t, first, second)
	assert.Len(t, fixtures.calls, 2, "second request is served from the cache")
}

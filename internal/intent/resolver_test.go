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

package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordResolver_Resolve(t *testing.T) {
	resolver := NewKeywordResolver()

	tests := []struct {
		name         string
		text         string
		expectedType IntentType
		trigger      string
	}{
		{"Balance query", "What is my balance", IntentBalance, "balance"},
		{"Data query", "how much DATA is left", IntentBalance, "data"},
		{"Recharge", "I want to recharge", IntentRecharge, "recharge"},
		{"Top up", "please top up my phone", IntentRecharge, "top up"},
		{"Plan", "tell me about plans", IntentPlan, "plan"},
		{"Offer", "any offer today", IntentPlan, "offer"},
		{"Greeting", "Hello there", IntentGreeting, "hello"},
		{"Escalation", "I need an agent", IntentEscalation, "agent"},
		{"Closing", "Thanks a lot", IntentClosing, "thank"},
		{"Balance wins over recharge", "recharge my balance", IntentBalance, "balance"},
		{"Recharge wins over plan", "recharge plan", IntentRecharge, "recharge"},
		{"Substring false positive", "show my history", IntentGreeting, "hi"},
		{"Help matches greeting first through 'hi'", "this is urgent help", IntentGreeting, "hi"},
		{"Support without earlier triggers", "support please", IntentEscalation, "support"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolver.Resolve(tt.text)
			assert.Equal(t, tt.expectedType, got.Type)
			assert.Equal(t, tt.trigger, got.Trigger)
			assert.NotEmpty(t, got.Response)
		})
	}
}

func TestKeywordResolver_CannedResponses(t *testing.T) {
	resolver := NewKeywordResolver()

	assert.Equal(t, "Your current data balance is 1.5 GB and talktime is 50 Rupees.",
		resolver.Resolve("balance").Response)
	assert.Equal(t, "To recharge, please visit our website or say '199 plan' to activate the monthly pack.",
		resolver.Resolve("recharge").Response)
	assert.Equal(t, "The best offer for you is the 199 Rupees unlimited plan for 28 days.",
		resolver.Resolve("offer").Response)
	assert.Equal(t, "Hello! Welcome to Telecom AI Support. How can I help you today?",
		resolver.Resolve("hello").Response)
	assert.Equal(t, "I am connecting you to a customer care executive. Please stay on the line.",
		resolver.Resolve("agent").Response)
	assert.Equal(t, "You're welcome! Have a great day.",
		resolver.Resolve("thank you").Response)
}

func TestKeywordResolver_Fallback(t *testing.T) {
	resolver := NewKeywordResolver()

	for _, text := range []string{"", "what is the weather", "मेरा बैलेंस"} {
		got := resolver.Resolve(text)
		assert.Equal(t, IntentUnknown, got.Type, "text %q", text)
		assert.Empty(t, got.Trigger)
		assert.Equal(t, FallbackResponse, got.Response)
	}
}

func TestRules_ReturnsCopy(t *testing.T) {
	rules := Rules()
	require.Len(t, rules, 6)
	assert.Equal(t, IntentBalance, rules[0].Type)
	assert.Equal(t, IntentClosing, rules[5].Type)

	rules[0].Triggers[0] = "mutated"
	rules[0].Response = "mutated"

	fresh := Rules()
	assert.Equal(t, "balance", fresh[0].Triggers[0])
	assert.NotEqual(t, "mutated", fresh[0].Response)
}

func TestNewKeywordResolverWithRules(t *testing.T) {
	resolver := NewKeywordResolverWithRules([]Rule{
		{Type: IntentPlan, Triggers: []string{"", "roaming"}, Response: "Roaming is free."},
	})

	assert.Equal(t, "Roaming is free.", resolver.Resolve("Roaming charges?").Response)
	assert.Equal(t, IntentUnknown, resolver.Resolve("balance").Type)
}

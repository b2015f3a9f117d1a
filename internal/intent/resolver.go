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
	"strings"
)

// IntentType represents the category of a telecom support request
type IntentType string

const (
	IntentBalance    IntentType = "balance"
	IntentRecharge   IntentType = "recharge"
	IntentPlan       IntentType = "plan"
	IntentGreeting   IntentType = "greeting"
	IntentEscalation IntentType = "escalation"
	IntentClosing    IntentType = "closing"
	IntentUnknown    IntentType = "unknown"
)

// FallbackResponse is returned when no rule matches
const FallbackResponse = "I'm sorry, I didn't understand that. You can ask about balance, recharge, or plans."

// Intent is the resolved rule for an utterance
type Intent struct {
	Type     IntentType `json:"type"`
	Trigger  string     `json:"trigger,omitempty"` // Keyword that matched, empty for the fallback
	Response string     `json:"response"`
}

// Rule maps trigger substrings to a canned reply
type Rule struct {
	Type     IntentType
	Triggers []string
	Response string
}

// Resolver maps English text to a canned reply
type Resolver interface {
	Resolve(text string) Intent
}

// defaultRules are evaluated in order; the first rule with a matching trigger wins.
// Matching is plain substring containment, so "history" matches "hi".
var defaultRules = []Rule{
	{
		Type:     IntentBalance,
		Triggers: []string{"balance", "data"},
		Response: "Your current data balance is 1.5 GB and talktime is 50 Rupees.",
	},
	{
		Type:     IntentRecharge,
		Triggers: []string{"recharge", "top up"},
		Response: "To recharge, please visit our website or say '199 plan' to activate the monthly pack.",
	},
	{
		Type:     IntentPlan,
		Triggers: []string{"plan", "offer"},
		Response: "The best offer for you is the 199 Rupees unlimited plan for 28 days.",
	},
	{
		Type:     IntentGreeting,
		Triggers: []string{"hello", "hi"},
		Response: "Hello! Welcome to Telecom AI Support. How can I help you today?",
	},
	{
		Type:     IntentEscalation,
		Triggers: []string{"support", "help", "agent"},
		Response: "I am connecting you to a customer care executive. Please stay on the line.",
	},
	{
		Type:     IntentClosing,
		Triggers: []string{"thank"},
		Response: "You're welcome! Have a great day.",
	},
}

// KeywordResolver resolves intents with ordered substring rules
type KeywordResolver struct {
	rules []Rule
}

// NewKeywordResolver creates a resolver over the built-in telecom rules
func NewKeywordResolver() *KeywordResolver {
	return &KeywordResolver{rules: Rules()}
}

// NewKeywordResolverWithRules creates a resolver over a custom ordered rule table
func NewKeywordResolverWithRules(rules []Rule) *KeywordResolver {
	return &KeywordResolver{rules: copyRules(rules)}
}

// Resolve lower-cases text and returns the first matching rule's reply.
// Empty text and text matching nothing yield the fallback.
func (r *KeywordResolver) Resolve(text string) Intent {
	lowered := strings.ToLower(text)

	for _, rule := range r.rules {
		for _, trigger := range rule.Triggers {
			if trigger != "" && strings.Contains(lowered, trigger) {
				return Intent{Type: rule.Type, Trigger: trigger, Response: rule.Response}
			}
		}
	}

	return Intent{Type: IntentUnknown, Response: FallbackResponse}
}

// Rules returns a copy of the built-in ordered rule table
func Rules() []Rule {
	return copyRules(defaultRules)
}

func copyRules(rules []Rule) []Rule {
	out := make([]Rule, len(rules))
	for i, rule := range rules {
		out[i] = Rule{
			Type:     rule.Type,
			Triggers: append([]string(nil), rule.Triggers...),
			Response: rule.Response,
		}
	}
	return out
}

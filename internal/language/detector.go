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

// Package language tags text with the language the rest of the pipeline
// reasons about.
package language

const (
	English = "en"
	Hindi   = "hi"
)

// Devanagari block bounds, inclusive
const (
	devanagariFirst = 'ऀ'
	devanagariLast  = 'ॿ'
)

// Classifier tags a piece of text with a language
type Classifier interface {
	Classify(text string) string
}

// DevanagariClassifier reports Hindi when any rune falls in the Devanagari
// block and English otherwise. Romanized Hindi is reported as English.
type DevanagariClassifier struct{}

// Classify returns Hindi on the first Devanagari rune, English otherwise
func (DevanagariClassifier) Classify(text string) string {
	if ContainsDevanagari(text) {
		return Hindi
	}
	return English
}

// ContainsDevanagari reports whether any rune of text is in U+0900..U+097F
func ContainsDevanagari(text string) bool {
	for _, r := range text {
		if r >= devanagariFirst && r <= devanagariLast {
			return true
		}
	}
	return false
}

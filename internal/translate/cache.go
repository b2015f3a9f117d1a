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

package translate

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheKey struct {
	source string
	target string
	text   string
}

// CachingTranslator memoizes successful translations of another Translator.
// Canned replies repeat constantly, so back-translations mostly hit the cache.
type CachingTranslator struct {
	next  Translator
	cache *lru.Cache[cacheKey, string]
}

// NewCachingTranslator wraps next with an LRU cache holding up to size entries
func NewCachingTranslator(next Translator, size int) (*CachingTranslator, error) {
	if next == nil {
		return nil, fmt.Errorf("translator must not be nil")
	}
	cache, err := lru.New[cacheKey, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create translation cache: %w", err)
	}
	return &CachingTranslator{next: next, cache: cache}, nil
}

// Translate implements Translator. Failures are never cached.
func (c *CachingTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	key := cacheKey{source: source, target: target, text: text}
	if translated, ok := c.cache.Get(key); ok {
		return translated, nil
	}

	translated, err := c.next.Translate(ctx, text, source, target)
	if err != nil {
		return "", err
	}

	c.cache.Add(key, translated)
	return translated, nil
}

// Len returns the number of cached translations
func (c *CachingTranslator) Len() int {
	return c.cache.Len()
}

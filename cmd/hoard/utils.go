/*
 * Copyright (c) 2021 Gilles Chehade <gilles@poolp.org>
 *
 * Permission to use, copy, modify, and distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package main

import (
	"fmt"
	"strings"

	"github.com/poolpOrg/hoard/objects"
	"github.com/poolpOrg/hoard/storage"
)

// parseDigestArg accepts "algorithm:hexdigest" or a bare hex digest
// under the store's primary algorithm.
func parseDigestArg(store *storage.Store, arg string) (objects.Digest, error) {
	algorithm := store.Configuration().Primary
	text := arg
	if index := strings.Index(arg, ":"); index != -1 {
		algorithm = arg[:index]
		text = arg[index+1:]
	}
	return objects.ParseHexDigest(algorithm, text)
}

// resolveObject resolves a possibly-partial digest argument to exactly
// one object, failing on ambiguity.
func resolveObject(store *storage.Store, arg string) (*objects.Object, error) {
	digest, err := parseDigestArg(store, arg)
	if err != nil {
		return nil, err
	}
	matches, err := store.Lookup(digest.Algorithm, digest.Value)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%s: %w", arg, storage.ErrNotFound)
	}
	if len(matches) > 1 {
		return nil, fmt.Errorf("digest is ambiguous: %s (matches %d objects)", arg, len(matches))
	}
	return matches[0], nil
}

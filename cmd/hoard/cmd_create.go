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
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/poolpOrg/hoard/hashing"
	"github.com/poolpOrg/hoard/storage"
)

func init() {
	registerStandaloneCommand("create", cmd_create)
}

func cmd_create(ctx Hoard, _ *storage.Store, args []string) int {
	var opt_hashing string
	var opt_primary string

	flags := flag.NewFlagSet("create", flag.ExitOnError)
	flags.StringVar(&opt_hashing, "hashing", strings.Join(hashing.DefaultAlgorithms(), ","),
		"comma-separated digest algorithms")
	flags.StringVar(&opt_primary, "primary", hashing.DefaultPrimary(),
		"primary digest algorithm")
	flags.Parse(args)

	config := storage.Configuration{
		Algorithms: strings.Split(opt_hashing, ","),
		Primary:    opt_primary,
	}

	store, err := storage.Create(ctx.StoreLocation, config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", flag.CommandLine.Name(), ctx.StoreLocation, err)
		return 1
	}
	store.Close()
	return 0
}

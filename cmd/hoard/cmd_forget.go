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

	"github.com/poolpOrg/hoard/storage"
)

func init() {
	registerCommand("forget", cmd_forget)
}

func cmd_forget(ctx Hoard, store *storage.Store, args []string) int {
	flags := flag.NewFlagSet("forget", flag.ExitOnError)
	flags.Parse(args)

	if flags.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "%s: forget: at least one digest required\n", flag.CommandLine.Name())
		return 1
	}

	primary := store.Configuration().Primary
	exitCode := 0
	for _, arg := range flags.Args() {
		object, err := resolveObject(store, arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", arg, err)
			exitCode = 1
			continue
		}
		forgotten, err := store.Forget(object.Digest(primary))
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", arg, err)
			exitCode = 1
			continue
		}
		if !forgotten {
			fmt.Fprintf(os.Stderr, "%s: not found\n", arg)
			exitCode = 1
		}
	}
	return exitCode
}

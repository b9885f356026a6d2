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
	registerCommand("add", cmd_add)
}

func cmd_add(ctx Hoard, store *storage.Store, args []string) int {
	var opt_type string
	var opt_language string
	var opt_charset string
	var opt_encoding string

	flags := flag.NewFlagSet("add", flag.ExitOnError)
	flags.StringVar(&opt_type, "type", "", "MIME type (sniffed from content when empty)")
	flags.StringVar(&opt_language, "language", "", "language tag")
	flags.StringVar(&opt_charset, "charset", "", "charset token")
	flags.StringVar(&opt_encoding, "encoding", "", "transfer-encoding token")
	flags.Parse(args)

	opts := &storage.AddOptions{
		Type:     opt_type,
		Language: opt_language,
		Charset:  opt_charset,
		Encoding: opt_encoding,
	}

	primary := store.Configuration().Primary
	exitCode := 0

	pathnames := flags.Args()
	if len(pathnames) == 0 {
		pathnames = []string{"-"}
	}
	for _, pathname := range pathnames {
		rd := os.Stdin
		if pathname != "-" {
			f, err := os.Open(pathname)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %s\n", pathname, err)
				exitCode = 1
				continue
			}
			rd = f
		}
		object, err := store.Add(rd, opts)
		if pathname != "-" {
			rd.Close()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", pathname, err)
			exitCode = 1
			continue
		}
		fmt.Printf("%s:%s %s\n", primary, object.HexDigest(primary), pathname)
	}
	return exitCode
}

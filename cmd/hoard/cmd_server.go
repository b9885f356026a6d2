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

	"github.com/poolpOrg/hoard/server/httpd"
	"github.com/poolpOrg/hoard/storage"
)

func init() {
	registerCommand("server", cmd_server)
}

func cmd_server(ctx Hoard, store *storage.Store, args []string) int {
	var opt_listen string

	flags := flag.NewFlagSet("server", flag.ExitOnError)
	flags.StringVar(&opt_listen, "listen", "127.0.0.1:9876", "address to listen on")
	flags.Parse(args)

	if err := httpd.Server(store, opt_listen); err != nil {
		fmt.Fprintf(os.Stderr, "%s: server: %s\n", flag.CommandLine.Name(), err)
		return 1
	}
	return 0
}

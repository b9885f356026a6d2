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

	"github.com/dustin/go-humanize"
	"github.com/poolpOrg/hoard/storage"
)

func init() {
	registerCommand("info", cmd_info)
}

func cmd_info(ctx Hoard, store *storage.Store, args []string) int {
	flags := flag.NewFlagSet("info", flag.ExitOnError)
	flags.Parse(args)

	stats, err := store.Stats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: info: %s\n", flag.CommandLine.Name(), err)
		return 1
	}

	config := store.Configuration()
	fmt.Printf("Location: %s\n", store.Location())
	fmt.Printf("Algorithms: %s\n", strings.Join(config.Algorithms, ", "))
	fmt.Printf("Primary: %s\n", config.Primary)
	fmt.Printf("Objects: %d (%d soft-deleted)\n", stats.Objects, stats.Deleted)
	fmt.Printf("Size: %s (%d bytes)\n", humanize.Bytes(stats.Bytes), stats.Bytes)
	fmt.Printf("CreationTime: %s\n", stats.CTime)
	fmt.Printf("LastWriteTime: %s\n", stats.MTime)
	return 0
}

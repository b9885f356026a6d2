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

	"github.com/dustin/go-humanize"
	"github.com/poolpOrg/hoard/objects"
	"github.com/poolpOrg/hoard/storage"
)

func init() {
	registerCommand("ls", cmd_ls)
}

func cmd_ls(ctx Hoard, store *storage.Store, args []string) int {
	var opt_sort string
	var opt_reverse bool
	var opt_offset int
	var opt_limit int
	var opt_type string
	var opt_deleted bool

	flags := flag.NewFlagSet("ls", flag.ExitOnError)
	flags.StringVar(&opt_sort, "sort", "", "comma-separated sort keys, \"-\" prefix reverses a key")
	flags.BoolVar(&opt_reverse, "reverse", false, "reverse the listing")
	flags.IntVar(&opt_offset, "offset", 0, "skip that many entries")
	flags.IntVar(&opt_limit, "limit", 0, "stop after that many entries")
	flags.StringVar(&opt_type, "type", "", "only list objects of that MIME type")
	flags.BoolVar(&opt_deleted, "deleted", false, "only list soft-deleted objects")
	flags.Parse(args)

	sortKeys, err := objects.ParseObjectSortKeys(opt_sort)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: ls: %s\n", flag.CommandLine.Name(), err)
		return 1
	}

	opts := &objects.ListOptions{
		SortKeys: sortKeys,
		Reverse:  opt_reverse,
		Offset:   opt_offset,
		Limit:    opt_limit,
	}
	if opt_type != "" {
		opts.Filters = append(opts.Filters, objects.Filter{Field: "Type", Value: opt_type})
	}
	if opt_deleted {
		zero := int64(0)
		opts.Filters = append(opts.Filters, objects.Filter{Field: "DTime", Min: &zero})
	}

	ret, err := store.List(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: ls: %s\n", flag.CommandLine.Name(), err)
		return 1
	}

	primary := store.Configuration().Primary
	for _, object := range ret {
		state := " "
		if object.Deleted() {
			state = "D"
		}
		fmt.Printf("%s %s %10s %-24s %s\n",
			object.CTime.Format("2006-01-02 15:04:05"),
			state,
			humanize.Bytes(uint64(object.Size)),
			object.Type,
			object.HexDigest(primary))
	}
	return 0
}

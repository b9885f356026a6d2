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
	"os/user"
	"sort"

	"github.com/poolpOrg/hoard/logging"
	"github.com/poolpOrg/hoard/storage"

	_ "github.com/poolpOrg/hoard/storage/fs"
)

const VERSION = "0.1.0"

type Hoard struct {
	StoreLocation string
}

var commands map[string]func(Hoard, *storage.Store, []string) int = make(map[string]func(Hoard, *storage.Store, []string) int)

// standalone commands run without an opened store
var standalone map[string]bool = make(map[string]bool)

func registerCommand(name string, fn func(Hoard, *storage.Store, []string) int) {
	commands[name] = fn
}

func registerStandaloneCommand(name string, fn func(Hoard, *storage.Store, []string) int) {
	commands[name] = fn
	standalone[name] = true
}

func main() {
	var opt_trace string
	var opt_info bool

	defaultStore := "./hoard"
	if pwUser, err := user.Current(); err == nil {
		defaultStore = fmt.Sprintf("%s/.hoard", pwUser.HomeDir)
	}

	var storeloc string
	flag.StringVar(&storeloc, "store", defaultStore, "store location")
	flag.StringVar(&opt_trace, "trace", "", "comma-separated list of subsystems to trace")
	flag.BoolVar(&opt_info, "info", false, "enable info output")
	flag.Parse()

	if opt_info {
		logging.EnableInfo()
	}
	if opt_trace != "" {
		logging.EnableTrace(opt_trace)
	}

	if flag.NArg() == 0 {
		names := make([]string, 0, len(commands))
		for name := range commands {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Println("valid subcommands:")
		for _, name := range names {
			fmt.Printf("\t%s\n", name)
		}
		fmt.Fprintf(os.Stderr, "%s: missing command\n", flag.CommandLine.Name())
		os.Exit(1)
	}

	command, args := flag.Arg(0), flag.Args()[1:]
	fn, exists := commands[command]
	if !exists {
		fmt.Fprintf(os.Stderr, "%s: unsupported command: %s\n", flag.CommandLine.Name(), command)
		os.Exit(1)
	}

	ctx := Hoard{StoreLocation: storeloc}

	var store *storage.Store
	if !standalone[command] {
		var err error
		store, err = storage.Open(storeloc, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s: %s\n", flag.CommandLine.Name(), storeloc, err)
			os.Exit(1)
		}
	}

	exitCode := fn(ctx, store, args)
	if store != nil {
		store.Close()
	}
	os.Exit(exitCode)
}

// Command emberstore is a small command-line front end for opening an
// emberstore folder and running a single set/get/delete/count/list
// operation against it, useful for inspecting or scripting against a store
// without writing Go.
package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/iamNilotpal/emberstore/pkg/options"
	"github.com/iamNilotpal/emberstore/pkg/store"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut *os.File) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	cmd := args[0]
	rest := args[1:]

	fs := flag.NewFlagSet("emberstore", flag.ContinueOnError)
	fs.SetOutput(errOut)
	folder := fs.StringP("folder", "f", "", "path to the store's data folder (required)")
	reclaimDelay := fs.Int64("reclaim-delay-ms", 0, "override the reclamation delay in milliseconds (0 reclaims inline; omit for the default)")
	if err := fs.Parse(rest); err != nil {
		return 2
	}

	if *folder == "" {
		fmt.Fprintln(errOut, "error: --folder is required")
		return 2
	}

	openOpts := []options.OptionFunc{options.WithFolder(*folder)}
	if fs.Changed("reclaim-delay-ms") {
		openOpts = append(openOpts, options.WithReclaimDelay(*reclaimDelay))
	}

	s, err := store.Open(openOpts...)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	defer s.Close()

	ctx := context.Background()
	switch cmd {
	case "set":
		return cmdSet(ctx, s, fs.Args(), out, errOut)
	case "get":
		return cmdGet(ctx, s, fs.Args(), out, errOut)
	case "delete":
		return cmdDelete(ctx, s, fs.Args(), out, errOut)
	case "count":
		return cmdCount(s, out)
	case "list":
		return cmdList(s, out, errOut)
	default:
		fmt.Fprintf(errOut, "error: unknown command %q\n", cmd)
		printUsage(errOut)
		return 2
	}
}

func printUsage(out *os.File) {
	fmt.Fprintln(out, "usage: emberstore --folder DIR <set|get|delete|count|list> [args]")
	fmt.Fprintln(out, "  set KEY VALUE     store VALUE under KEY")
	fmt.Fprintln(out, "  get KEY           print the value stored under KEY")
	fmt.Fprintln(out, "  delete KEY        remove KEY")
	fmt.Fprintln(out, "  count             print the number of live keys")
	fmt.Fprintln(out, "  list              print every live key and value")
}

func cmdSet(ctx context.Context, s *store.Store, args []string, out, errOut *os.File) int {
	if len(args) != 2 {
		fmt.Fprintln(errOut, "error: set requires KEY and VALUE")
		return 2
	}
	if err := s.Set(ctx, args[0], []byte(args[1])); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	return 0
}

func cmdGet(ctx context.Context, s *store.Store, args []string, out, errOut *os.File) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: get requires KEY")
		return 2
	}
	value, ok, err := s.Get(ctx, args[0])
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	if !ok {
		fmt.Fprintln(errOut, "key not found")
		return 1
	}
	fmt.Fprintln(out, string(value))
	return 0
}

func cmdDelete(ctx context.Context, s *store.Store, args []string, out, errOut *os.File) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: delete requires KEY")
		return 2
	}
	existed, err := s.Delete(ctx, args[0])
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	if !existed {
		fmt.Fprintln(errOut, "key not found")
		return 1
	}
	return 0
}

func cmdCount(s *store.Store, out *os.File) int {
	fmt.Fprintln(out, s.Count())
	return 0
}

func cmdList(s *store.Store, out, errOut *os.File) int {
	err := s.Cursor().ForEach(func(key string, value []byte) error {
		fmt.Fprintf(out, "%s\t%s\n", key, string(value))
		return nil
	})
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	return 0
}

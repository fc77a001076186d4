// proxygen generates proxy types for Go types, either as source compiled
// into the target package or as prebuilt plugins.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/proxyfactory/manifest"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	verbosity := flag.Int("v", -1, "Log verbosity (0-5); defaults to proxygen.toml")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: proxygen [options] <command> [arguments]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  gen [flags] [packages...]   Write proxies into their target packages\n")
		fmt.Fprintf(os.Stderr, "  build [flags]               Build plugins for the targets in proxygen.toml\n")
		fmt.Fprintf(os.Stderr, "  inspect [package]           Show the proxyable types of a package\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  proxygen gen -type Widget .                      # go:generate in a package\n")
		fmt.Fprintf(os.Stderr, "  proxygen gen -strategy before -hook observe .    # call observe before each method\n")
		fmt.Fprintf(os.Stderr, "  proxygen -v 3 build -j 4                          # build all manifest targets\n")
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	m, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading manifest: %v\n", err)
		os.Exit(1)
	}
	configureLogging(*verbosity, m)

	args := flag.Args()
	switch args[0] {
	case "gen":
		err = runGen(args[1:], m)
	case "build":
		err = runBuild(args[1:], m)
	case "inspect":
		err = runInspect(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", args[0])
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func configureLogging(verbosity int, m *manifest.Manifest) {
	if verbosity < 0 {
		verbosity = 0
		if m != nil {
			verbosity = m.Proxy.Verbosity
		}
	}
	commonlog.Configure(verbosity, nil)
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

// rtc-token mints and inspects "007" RTC access tokens from the command
// line.
//
//	rtc-token mint --channel room1 --uid 42 --role publisher --ttl 1h
//	rtc-token inspect 007eJx...
//
// mint reads the app credentials from --app-id/--app-cert, falling back
// to AGORA_APP_ID and AGORA_APP_CERTIFICATE (a .env file is honoured).
// inspect decodes a token without checking its signature.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
)

var Version = "dev"

func main() {
	_ = godotenv.Load()

	if err := run(os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	if len(args) == 0 {
		printUsage(stderr)
		return fmt.Errorf("missing command")
	}

	switch args[0] {
	case "mint":
		return runMint(args[1:], stdout, stderr, getenv)
	case "inspect":
		return runInspect(args[1:], stdout, stderr)
	case "version", "--version":
		fmt.Fprintf(stdout, "rtc-token %s\n", Version)
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: rtc-token <command> [flags]

Commands:
  mint      build a signed token for a channel
  inspect   decode a token and print its fields (no signature check)
  version   print the version

Run "rtc-token <command> --help" for command flags.
`)
}

package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "serve":
		return runServe(args[1:])
	case "translate":
		return runTranslate(args[1:])
	case "translate-page":
		return runTranslatePage(args[1:])
	case "settings":
		return runSettings(args[1:])
	case "languages":
		return runLanguages(args[1:])
	case "runs":
		return runRuns(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "pagetrans CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  pagetrans <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  serve           Start the Echo API server hosting documents")
	fmt.Fprintln(os.Stderr, "  translate       Translate one piece of text")
	fmt.Fprintln(os.Stderr, "  translate-page  Translate an HTML file or URL and print the overlaid page")
	fmt.Fprintln(os.Stderr, "  settings        Show or change the saved target language")
	fmt.Fprintln(os.Stderr, "  languages       List target languages")
	fmt.Fprintln(os.Stderr, "  runs            List recent page runs (requires DATABASE_URL)")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"pagetrans <command> -h\" for command-specific flags.")
}

// Command nbackend compiles and links the bitcode of one build session into
// a native artifact.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/timmyyuan/native-backend/command"
	"github.com/timmyyuan/native-backend/diag"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// reportError prints err. A failed link only says which tool failed, so the
// command line and the diagnostics of that tool are printed after it.
func reportError(w io.Writer, err error) {
	color.New(color.FgRed).Fprintf(w, "error: %v\n", err)

	var compileErr *diag.CompilationError
	var failure *command.ExternalToolFailure
	if !errors.As(err, &compileErr) || !errors.As(err, &failure) {
		return
	}
	fmt.Fprintf(w, "failed command: %s\n", failure.Command)
	if s := strings.TrimSpace(failure.Stderr); s != "" {
		fmt.Fprintln(w, s)
	}
}

func newRootCmd() *cobra.Command {
	var verbose int
	var logToStderr bool

	cmd := &cobra.Command{
		Use:           "nbackend",
		Short:         "Native backend: bitcode to native binaries",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogging(logToStderr, verbose)
		},
	}

	cmd.PersistentFlags().IntVarP(&verbose, "verbose", "v", 0,
		"Enable verbose logging (e.g., v=3); anything >3 is very verbose")
	cmd.PersistentFlags().BoolVar(&logToStderr, "logtostderr", false,
		"Log to stderr instead of to files")

	cmd.AddCommand(newProduceCmd())
	cmd.AddCommand(newTargetsCmd())
	return cmd
}

// initLogging hands the verbosity to glog, which only reads its settings
// from the standard flag set.
func initLogging(logToStderr bool, verbose int) {
	_ = flag.CommandLine.Parse(nil)
	if logToStderr {
		_ = flag.Lookup("logtostderr").Value.Set("true")
	}
	if verbose > 0 {
		_ = flag.Lookup("v").Value.Set(strconv.Itoa(verbose))
	}
}

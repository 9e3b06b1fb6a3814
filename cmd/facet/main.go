// Command facet compiles a FACET document and prints its canonical JSON
// payload. Grounded on cli/main.go's cobra root-command structure
// (persistent flags, os.Stdin/file dual input) and
// Keyhole-Koro-InsightifyCore's internal/gateway/config/config.go for
// the godotenv.Load-then-flag-override config pattern (FACET_* env vars
// seed defaults, flags override them).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/facet-lang/facet"
	"github.com/facet-lang/facet/internal/resolver"
)

func main() {
	_ = godotenv.Load()

	var (
		budget   int
		gasLimit int
		pretty   bool
	)

	rootCmd := &cobra.Command{
		Use:   "facet [file]",
		Short: "Compile a FACET document into its canonical JSON payload",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runCompile(cmd, path, budget, gasLimit, pretty)
		},
	}

	rootCmd.PersistentFlags().IntVar(&budget, "budget", envInt("FACET_BUDGET", 0), "token budget for the allocator (0 = unbounded)")
	rootCmd.PersistentFlags().IntVar(&gasLimit, "gas-limit", envInt("FACET_GAS_LIMIT", 0), "lens pipeline gas limit (0 = engine default)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "pretty-print the output JSON")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCompile(cmd *cobra.Command, path string, budget, gasLimit int, pretty bool) error {
	reader, closeFunc, err := openInput(path)
	if err != nil {
		return err
	}
	defer func() { _ = closeFunc() }()

	src, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	opts := facet.Options{
		Path:     path,
		Loader:   resolver.FileLoader{},
		Budget:   budget,
		GasLimit: gasLimit,
	}

	result, diag := facet.Compile(cmd.Context(), string(src), opts)
	if diag != nil {
		fmt.Fprintln(os.Stderr, diag.Error())
		os.Exit(1)
	}

	var out []byte
	if pretty {
		out, err = json.MarshalIndent(result.Payload, "", "  ")
	} else {
		out, err = json.Marshal(result.Payload)
	}
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	fmt.Fprintln(os.Stdout, string(out))

	for _, d := range result.Diagnostics.Diagnostics {
		fmt.Fprintln(os.Stderr, d.Error())
	}

	return nil
}

// openInput mirrors cli/main.go's dual-mode input: "-" or piped stdin read
// directly, anything else opened as a path.
func openInput(path string) (io.Reader, func() error, error) {
	if path == "-" && !hasPipedInput() {
		return nil, nil, fmt.Errorf("no input file given and stdin is not piped")
	}
	if path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, f.Close, nil
}

func hasPipedInput() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

func envInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

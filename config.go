package symrt

import (
	"fmt"
	"os"
	"strconv"
)

// DefaultGCThreshold is the store size at which collection points start
// sweeping.
const DefaultGCThreshold = 5000

// Config is the environment-driven runtime configuration.
type Config struct {
	// OutputDir receives generated test cases. It must exist unless the
	// run is fully concrete.
	OutputDir string

	// NoSymbolicInput short-circuits initialization: the program runs
	// fully concretely and no solver is created.
	NoSymbolicInput bool

	// Pruning selects the expression-construction strategy that
	// concretizes values in hot calling contexts.
	Pruning bool

	// CoverageMap optionally persists branch-interest state across runs.
	CoverageMap string

	// GCThreshold is the store size below which collection points are
	// no-ops.
	GCThreshold int
}

// LoadConfig reads the configuration from SYMCC_* environment variables.
func LoadConfig() (Config, error) {
	cfg := Config{
		OutputDir:       "/tmp/output",
		GCThreshold:     DefaultGCThreshold,
		NoSymbolicInput: boolEnv("SYMCC_NO_SYMBOLIC_INPUT"),
		Pruning:         boolEnv("SYMCC_ENABLE_PRUNING"),
		CoverageMap:     os.Getenv("SYMCC_AFL_COVERAGE_MAP"),
	}
	if dir := os.Getenv("SYMCC_OUTPUT_DIR"); dir != "" {
		cfg.OutputDir = dir
	}
	if v := os.Getenv("SYMCC_GC_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("symrt: invalid SYMCC_GC_THRESHOLD %q", v)
		}
		cfg.GCThreshold = n
	}
	return cfg, nil
}

func boolEnv(name string) bool {
	switch os.Getenv(name) {
	case "", "0", "false", "off", "no":
		return false
	}
	return true
}

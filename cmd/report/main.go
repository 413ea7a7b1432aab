// Command report regenerates the summary CSV from a simulation output
// folder. The simulator writes the same report at the end of a normal run;
// this tool reruns the aggregation standalone, e.g. over a folder whose run
// was interrupted or terminated early.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"fib-pattern-lab/internal/reporting"
)

func main() {
	outputDir := flag.String("output", "output", "journal folder to summarize")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()

	generator := reporting.NewGenerator(*outputDir, logger)
	summary, err := generator.Generate(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("report generation failed")
	}

	path, err := generator.WriteCSV(summary)
	if err != nil {
		logger.Fatal().Err(err).Msg("writing summary report failed")
	}

	fmt.Printf("%s: %d months, %d timeframes\n", path, len(summary.Months), len(summary.Timeframes))
}

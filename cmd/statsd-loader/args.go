package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

type commandOptions struct {
	Host         string   `short:"H" long:"host"          default:"127.0.0.1" description:"Host to send metrics to"                  `
	Port         int      `short:"P" long:"port"          default:"8125"      description:"UDP port on the host"                     `
	MetricPrefix string   `short:"p" long:"metric-prefix" default:"loadtest." description:"Metric name prefix"                       `
	MetricSuffix string   `          long:"metric-suffix" default:".%d"       description:"Metric suffix with cardinality marker"    `
	GlobalTags   []string `          long:"tag"                               description:"Tag to attach to every metric, repeatable"`
	Rate         uint     `short:"r" long:"rate"          default:"1000"      description:"Target metrics per second"                `
	Workers      uint     `short:"w" long:"workers"       default:"1"         description:"Number of parallel workers to use"        `
	SampleRate   float64  `          long:"sample-rate"   default:"1"         description:"Sample rate for counters and timers"      `
	Client       struct {
		MaxBufferSize   int           `long:"max-buffer-size"         default:"1432" description:"Bytes buffered before a datagram goes out, 0 sends each metric alone"`
		FlushInterval   time.Duration `long:"buffer-flush-interval"   default:"1s"   description:"How often a quiet buffer is flushed"                                 `
		RefreshInterval time.Duration `long:"socket-refresh-interval" default:"1m"   description:"How often the sending socket is swapped"                             `
		CacheDNS        bool          `long:"cache-dns"                              description:"Resolve the host once and re-resolve in the background"              `
	} `group:"Client"`
	Counts struct {
		Counter uint64 ` short:"c" long:"counter-count"                              description:"Number of counters to send"              `
		Gauge   uint64 ` short:"g" long:"gauge-count"                                description:"Number of gauges to send"                `
		Set     uint64 ` short:"s" long:"set-count"                                  description:"Number of sets to send"                  `
		Timer   uint64 ` short:"t" long:"timer-count"                                description:"Number of timers to send"                `
	} `group:"Metric count"`
	NameCard struct {
		Counter uint `             long:"counter-cardinality"     default:"1"        description:"Cardinality of counter names"            `
		Gauge   uint `             long:"gauge-cardinality"       default:"1"        description:"Cardinality of gauges names"             `
		Set     uint `             long:"set-cardinality"         default:"1"        description:"Cardinality of set names"                `
		Timer   uint `             long:"timer-cardinality"       default:"1"        description:"Cardinality of timer names"              `
	} `group:"Name cardinality"`
	TagCard struct {
		Counter []uint `           long:"counter-tag-cardinality"                    description:"Cardinality of count tags"               `
		Gauge   []uint `           long:"gauge-tag-cardinality"                      description:"Cardinality of gauge tags"               `
		Set     []uint `           long:"set-tag-cardinality"                        description:"Cardinality of set tags"                 `
		Timer   []uint `           long:"timer-tag-cardinality"                      description:"Cardinality of timer tags"               `
	} `group:"Tag cardinality"`
	ValueRange struct {
		Counter uint `             long:"counter-value-limit"     default:"0"        description:"Maximum value of counters minus one"     `
		Gauge   uint `             long:"gauge-value-limit"       default:"1"        description:"Maximum value of gauges"                 `
		Set     uint `             long:"set-value-cardinality"   default:"1"        description:"Maximum number of values to send per set"`
		Timer   uint `             long:"timer-value-limit"       default:"1"        description:"Maximum value of timers"                 `
	} `group:"Value range"`
	JSONSummary bool `             long:"json-summary"                               description:"Print a JSON run summary on completion"  `
	Verbose     bool `short:"v"    long:"verbose"                                    description:"Print debug logs"                        `
}

func parseArgs(args []string) commandOptions {
	var opts commandOptions
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.LongDescription = "" + // because gofmt
		"Generates statsd load through the client library itself, so buffering,\n" +
		"sampling and socket refresh all behave exactly as they do in an\n" +
		"instrumented service.  Tag cardinality can be specified multiple times,\n" +
		"and each tag will be named tagN:M.  The maximum total cardinality will be:\n\n" +
		"|name| * |tag1| * |tag2| * ... * |tagN|\n\n" +
		"Care should be taken to not cause a combinatorial explosion."

	positional, err := parser.ParseArgs(args)
	if err != nil {
		if !isHelp(err) {
			parser.WriteHelp(os.Stderr)
			_, _ = fmt.Fprintf(os.Stderr, "\n\nerror parsing command line: %v\n", err)
			os.Exit(1)
		}
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}

	if len(positional) != 0 {
		// Near as I can tell there's no way to say no positional arguments allowed.
		parser.WriteHelp(os.Stderr)
		_, _ = fmt.Fprintf(os.Stderr, "\n\nno positional arguments allowed\n")
		os.Exit(1)
	}

	if opts.Counts.Counter+opts.Counts.Gauge+opts.Counts.Set+opts.Counts.Timer == 0 {
		parser.WriteHelp(os.Stderr)
		_, _ = fmt.Fprintf(os.Stderr, "\n\nAt least one of counter-count, gauge-count, set-count, or timer-count must be non-zero\n")
		os.Exit(1)
	}
	return opts
}

// isHelp tests the error from ParseArgs() to determine if the help message
// was requested. flags.ErrHelp is returned whenever HelpFlag is set and
// -h/--help was passed, even when the help was not printed. Safe to call
// without first checking that the error is nil.
func isHelp(err error) bool {
	if err == nil {
		return false
	}
	flagError, ok := err.(*flags.Error)
	if !ok {
		return false
	}
	return flagError.Type == flags.ErrHelp
}

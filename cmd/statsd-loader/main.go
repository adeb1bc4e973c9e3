package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/metricdrain/statsd"
	"github.com/metricdrain/statsd/internal/util"
)

var jsonSummary = jsoniter.Config{
	EscapeHTML:    false,
	SortMapKeys:   true,
	IndentionStep: 2,
}.Froze()

type runSummary struct {
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Sent           uint64  `json:"sent"`
	Failed         uint64  `json:"failed"`
	PacketsSent    uint64  `json:"packets_sent"`
	PacketsDropped uint64  `json:"packets_dropped"`
	BytesSent      uint64  `json:"bytes_sent"`
}

func main() {
	opts := parseArgs(os.Args[1:])
	if opts.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logger := logrus.StandardLogger()

	if err := waitForResolvable(logger, opts.Host, opts.Port); err != nil {
		logger.WithError(err).Fatal("collector host never became resolvable")
	}

	client, err := statsd.NewClient(statsd.Config{
		Host:                  opts.Host,
		Port:                  opts.Port,
		Prefix:                opts.MetricPrefix,
		GlobalTags:            opts.GlobalTags,
		CacheDNS:              opts.Client.CacheDNS,
		MaxBufferSize:         opts.Client.MaxBufferSize,
		BufferFlushInterval:   opts.Client.FlushInterval,
		SocketRefreshInterval: opts.Client.RefreshInterval,
		Logger:                logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create client")
	}

	start := time.Now()
	pendingWorkers := make(chan struct{}, opts.Workers)
	generators := make([]*metricGenerator, 0, opts.Workers)
	for i := uint(0); i < opts.Workers; i++ {
		generator := newGenerator(opts)
		generators = append(generators, generator)
		go sendMetricsWorker(client, generator, opts.Rate/opts.Workers, pendingWorkers)
	}

	runningWorkers := opts.Workers
	statusTicker := time.NewTicker(1 * time.Second)
	defer statusTicker.Stop()
	for runningWorkers > 0 {
		select {
		case <-pendingWorkers:
			runningWorkers--
		case <-statusTicker.C:
			counters := uint64(0)
			gauges := uint64(0)
			sets := uint64(0)
			timers := uint64(0)
			for _, mg := range generators {
				counters += atomic.LoadUint64(&mg.counters.count)
				gauges += atomic.LoadUint64(&mg.gauges.count)
				sets += atomic.LoadUint64(&mg.sets.count)
				timers += atomic.LoadUint64(&mg.timers.count)
			}
			fmt.Printf("%d counters, %d gauges, %d sets, %d timers remaining\n", counters, gauges, sets, timers)
		}
	}

	// Close flushes the final buffered payload, read the counters after.
	if err := client.Close(); err != nil {
		logger.WithError(err).Warn("failed to close client")
	}
	stats := client.Stats()

	if opts.JSONSummary {
		summary := runSummary{
			ElapsedSeconds: time.Since(start).Seconds(),
			PacketsSent:    stats.PacketsSent,
			PacketsDropped: stats.PacketsDropped,
			BytesSent:      stats.BytesSent,
		}
		for _, mg := range generators {
			summary.Sent += atomic.LoadUint64(&mg.sent)
			summary.Failed += atomic.LoadUint64(&mg.failed)
		}
		out, err := jsonSummary.Marshal(&summary)
		if err != nil {
			logger.WithError(err).Fatal("failed to marshal summary")
		}
		fmt.Println(string(out))
	}
}

// waitForResolvable blocks until the collector host resolves, so a loader
// started before its target does not burn its whole run on DNS errors.
func waitForResolvable(logger logrus.FieldLogger, host string, port int) error {
	hostPort := net.JoinHostPort(host, strconv.Itoa(port))
	boFactory := util.NewBackoffFactory(1.0, 30*time.Second, 500*time.Millisecond, 0)
	return backoff.RetryNotify(
		func() error {
			_, err := net.ResolveUDPAddr("udp", hostPort)
			return err
		},
		boFactory(),
		func(err error, wait time.Duration) {
			logger.WithError(err).WithField("wait", wait).Warn("failed to resolve collector host, retrying")
		},
	)
}

func sendMetricsWorker(client *statsd.Client, generator *metricGenerator, perWorkerRate uint, chDone chan<- struct{}) {
	if perWorkerRate == 0 {
		perWorkerRate = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perWorkerRate), int(perWorkerRate/10)+1)
	ctx := context.Background()
	for {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		if !generator.next(client) {
			break
		}
	}
	chDone <- struct{}{}
}

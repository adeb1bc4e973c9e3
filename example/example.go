package main

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/metricdrain/statsd"
)

func main() {
	client, err := statsd.NewClient(statsd.Config{
		Host:          "localhost",
		Port:          8125,
		Prefix:        "example.",
		GlobalTags:    statsd.Tags{"env:dev"},
		MaxBufferSize: 1432,
	})
	if err != nil {
		logrus.WithError(err).Fatal("failed to create client")
	}
	defer client.Close()

	// Optional: make the client reachable for code without an injected handle.
	statsd.SetDefault(client)

	client.Increment("started")

	timer := client.NewTimer("work.duration")
	doWork()
	timer.Send()

	client.Gauge("queue.depth", 17)
	client.Count("requests", 3, statsd.WithRate(0.5), statsd.WithTags("handler:root"))
	client.Unique("users", "user42")

	client.SendMetrics([]string{"cache.hits", "cache.total"},
		statsd.Metric{Value: 1, Type: statsd.COUNTER},
		statsd.WithCallback(func(sentBytes int, err error) {
			if err != nil {
				logrus.WithError(err).Warn("cache counters were not sent")
			}
		}))

	db := client.CloneWithPrefix("db.")
	db.TimingDuration("query", 3*time.Millisecond)
}

func doWork() {
	time.Sleep(10 * time.Millisecond)
}

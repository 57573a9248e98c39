package utils

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
)

func baseStreamConfig() nats.StreamConfig {
	return nats.StreamConfig{
		Name:      "METRICS_INGEST",
		Subjects:  []string{"v1.metrics.ingest.*"},
		Retention: nats.LimitsPolicy,
		Storage:   nats.FileStorage,
		MaxAge:    7 * 24 * time.Hour,
	}
}

func TestStreamConfigEqual(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *nats.StreamConfig)
		expected bool
	}{
		{"identical", func(c *nats.StreamConfig) {}, true},
		{"description is ignored", func(c *nats.StreamConfig) { c.Description = "other" }, true},
		{"extra subject", func(c *nats.StreamConfig) {
			c.Subjects = append(c.Subjects, "v1.metrics.ingested.*")
		}, false},
		{"different name", func(c *nats.StreamConfig) { c.Name = "OTHER" }, false},
		{"different retention", func(c *nats.StreamConfig) { c.Retention = nats.InterestPolicy }, false},
		{"different storage", func(c *nats.StreamConfig) { c.Storage = nats.MemoryStorage }, false},
		{"different max age", func(c *nats.StreamConfig) { c.MaxAge = time.Hour }, false},
		{"different duplicates window", func(c *nats.StreamConfig) { c.Duplicates = time.Minute }, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, b := baseStreamConfig(), baseStreamConfig()
			tc.mutate(&b)
			assert.Equal(t, tc.expected, StreamConfigEqual(a, b))
		})
	}
}

func TestStreamConfigEqual_UnorderedSubjects(t *testing.T) {
	a := baseStreamConfig()
	a.Subjects = []string{"a.*", "b.*"}
	b := baseStreamConfig()
	b.Subjects = []string{"b.*", "a.*"}

	assert.True(t, StreamConfigEqual(a, b))
	// inputs are not reordered
	assert.Equal(t, []string{"b.*", "a.*"}, b.Subjects)
}

func TestConsumerConfigEqual(t *testing.T) {
	base := func() nats.ConsumerConfig {
		return nats.ConsumerConfig{
			Durable:        "metrics-ingest",
			DeliverGroup:   "metrics-ingest-group",
			DeliverSubject: "_INBOX.one",
			FilterSubjects: []string{"v1.metrics.ingest.*"},
			AckPolicy:      nats.AckExplicitPolicy,
			AckWait:        30 * time.Second,
			MaxDeliver:     5,
			MaxAckPending:  1000,
		}
	}

	tests := []struct {
		name     string
		mutate   func(c *nats.ConsumerConfig)
		expected bool
	}{
		{"identical", func(c *nats.ConsumerConfig) {}, true},
		{"deliver subject is ignored", func(c *nats.ConsumerConfig) { c.DeliverSubject = "_INBOX.two" }, true},
		{"different durable", func(c *nats.ConsumerConfig) { c.Durable = "other" }, false},
		{"different group", func(c *nats.ConsumerConfig) { c.DeliverGroup = "other" }, false},
		{"different ack policy", func(c *nats.ConsumerConfig) { c.AckPolicy = nats.AckAllPolicy }, false},
		{"different ack wait", func(c *nats.ConsumerConfig) { c.AckWait = time.Minute }, false},
		{"different max deliver", func(c *nats.ConsumerConfig) { c.MaxDeliver = 10 }, false},
		{"different max ack pending", func(c *nats.ConsumerConfig) { c.MaxAckPending = 10 }, false},
		{"different filter subjects", func(c *nats.ConsumerConfig) {
			c.FilterSubjects = []string{"v1.metrics.ingest.linkedin"}
		}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, b := base(), base()
			tc.mutate(&b)
			assert.Equal(t, tc.expected, ConsumerConfigEqual(a, b))
		})
	}
}

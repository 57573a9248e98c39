package model

import (
	"strings"
	"time"
)

// IngestedEvent is published after a report has been stored.
type IngestedEvent struct {
	Channel     Channel   `json:"channel"`
	ReportID    int64     `json:"reportId"`
	Timestamp   time.Time `json:"timestamp"`
	Source      string    `json:"source"`
	Synthesized bool      `json:"synthesized,omitempty"`
}

// SubjectFor joins a subject prefix with a channel tag, e.g. "v1.metrics.ingest.linkedin".
func SubjectFor(prefix string, channel Channel) string {
	return strings.TrimSuffix(prefix, ".") + "." + string(channel)
}

// ChannelFromSubject returns the last token of a subject as a channel tag.
func ChannelFromSubject(subject string) (Channel, error) {
	idx := strings.LastIndex(subject, ".")
	return ParseChannel(subject[idx+1:])
}

// MessageMetadata carries the JetStream delivery details of a consumed message.
type MessageMetadata struct {
	ConsumerSequence uint64
	StreamSequence   uint64
	NumDelivered     uint64
	NumPending       uint64
	Timestamp        time.Time
	Stream           string
	Consumer         string
	MessageID        string
	MessageSubject   string
}

package utils

import (
	"sort"

	"github.com/nats-io/nats.go"
)

// StreamConfigEqual reports whether the settings this service manages match.
// Subject order is ignored.
func StreamConfigEqual(a, b nats.StreamConfig) bool {
	return a.Name == b.Name &&
		a.Retention == b.Retention &&
		a.Storage == b.Storage &&
		a.MaxAge == b.MaxAge &&
		a.MaxMsgs == b.MaxMsgs &&
		a.Duplicates == b.Duplicates &&
		sameStrings(a.Subjects, b.Subjects)
}

// ConsumerConfigEqual reports whether the consumer settings this service manages match.
// DeliverSubject is generated per setup and is not compared.
func ConsumerConfigEqual(a, b nats.ConsumerConfig) bool {
	return a.Durable == b.Durable &&
		a.DeliverGroup == b.DeliverGroup &&
		a.AckPolicy == b.AckPolicy &&
		a.AckWait == b.AckWait &&
		a.MaxDeliver == b.MaxDeliver &&
		a.MaxAckPending == b.MaxAckPending &&
		a.FilterSubject == b.FilterSubject &&
		sameStrings(a.FilterSubjects, b.FilterSubjects)
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

package feedback

import "time"

func withCapacity(n int) Option {
	return func(l *Log) { l.capacity = n }
}

func withTTL(d time.Duration) Option {
	return func(l *Log) { l.ttl = d }
}

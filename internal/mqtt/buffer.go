package mqtt

import "go.uber.org/zap"

// pending is a message held back while the broker is unreachable.
type pending struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog keeps the most recent messages published while disconnected so they
// can be replayed in order after reconnecting. The oldest message is
// overwritten once capacity is reached. Callers synchronize access.
type backlog struct {
	msgs    []pending
	next    int
	size    int
	dropped int
}

func newBacklog(capacity int) *backlog {
	if capacity < 1 {
		capacity = 1
	}
	return &backlog{msgs: make([]pending, capacity)}
}

func (b *backlog) add(msg pending) {
	if b.size == len(b.msgs) {
		if b.dropped == 0 {
			zap.S().Warnf("mqtt: backlog full (%d messages), overwriting oldest", len(b.msgs))
		}
		b.dropped++
	} else {
		b.size++
	}
	b.msgs[b.next] = msg
	b.next = (b.next + 1) % len(b.msgs)
}

// take empties the backlog, returning messages oldest first.
func (b *backlog) take() []pending {
	if b.size == 0 {
		return nil
	}

	out := make([]pending, 0, b.size)
	first := (b.next - b.size + len(b.msgs)) % len(b.msgs)
	for i := 0; i < b.size; i++ {
		out = append(out, b.msgs[(first+i)%len(b.msgs)])
	}

	if b.dropped > 0 {
		zap.S().Warnf("mqtt: %d buffered messages were overwritten while offline", b.dropped)
	}
	b.next, b.size, b.dropped = 0, 0, 0
	return out
}

func (b *backlog) len() int {
	return b.size
}

package icefun

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Channel is the request/reply stream to the board. Replies are read through
// a buffer that persists across commands.
type Channel struct {
	w   io.Writer
	r   *bufio.Reader
	log *slog.Logger
}

// NewChannel wraps an open byte stream.
func NewChannel(rw io.ReadWriter, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		w:   rw,
		r:   bufio.NewReader(rw),
		log: logger,
	}
}

// Send writes the opcode and the encoded arguments in a single write, then
// decodes the reply. Bytes left in the read buffer after the reply are
// logged and dropped.
func Send[A, R any](ch *Channel, cmd Command[A, R], args A) (R, error) {
	ctx := context.Background()
	tracing := ch.log.Enabled(ctx, LevelTrace)

	payload := cmd.Encode(args)
	frame := make([]byte, 0, 1+len(payload))
	frame = append(frame, byte(cmd.Op))
	frame = append(frame, payload...)
	if tracing {
		ch.log.Log(ctx, LevelTrace, "send", "cmd", cmd.Op, "args", fmt.Sprintf("% x", payload))
	}

	var zero R
	if _, err := ch.w.Write(frame); err != nil {
		return zero, fmt.Errorf("%s: write: %w", cmd.Op, err)
	}

	var src io.Reader = ch.r
	var rec *bytes.Buffer
	if tracing {
		rec = new(bytes.Buffer)
		src = io.TeeReader(ch.r, rec)
	}
	reply, err := cmd.Decode(src)
	if tracing {
		ch.log.Log(ctx, LevelTrace, "recv", "cmd", cmd.Op, "reply", fmt.Sprintf("% x", rec.Bytes()))
	}
	if n := ch.r.Buffered(); n > 0 {
		extra, _ := ch.r.Peek(n)
		ch.log.Debug("Unread reply", "cmd", cmd.Op, "bytes", fmt.Sprintf("% x", extra))
		ch.r.Discard(n)
	}
	return reply, err
}

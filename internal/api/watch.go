package api

import (
	"strings"

	"github.com/matheus3301/charly/internal/bus"
	"github.com/matheus3301/charly/internal/rpc"
	"go.uber.org/zap"
)

const watchBuffer = 256

// forward relays bus events whose kind starts with one of the namespaces
// until the client goes away or a send fails.
func forward(stream rpc.EventStream, b *bus.Bus, profile string, logger *zap.Logger, namespaces ...string) error {
	ch, unsub := b.Subscribe("", watchBuffer)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			if !matches(evt.Kind, namespaces) {
				continue
			}
			out, err := rpc.NewEvent(profile, evt.Kind, evt.Timestamp, evt.Payload)
			if err != nil {
				logger.Warn("dropping event", zap.String("kind", evt.Kind), zap.Error(err))
				continue
			}
			if err := stream.Send(out); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func matches(kind string, namespaces []string) bool {
	for _, ns := range namespaces {
		if strings.HasPrefix(kind, ns) {
			return true
		}
	}
	return false
}

package rules

import (
	"context"
	"time"
)

// StartWatcher 订阅规则更新频道，收到通知即全量重载；
// 另以 60 秒定时兜底，防止错过消息。
func (s *Store) StartWatcher(ctx context.Context) {
	if s.rdb == nil {
		s.log.Warn("rule watcher disabled: no redis repo")
		return
	}
	sub := s.rdb.Subscribe(ctx)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				s.log.Warn("pubsub channel closed, stopping watcher")
				return
			}
			s.log.Debug("received rule update", "payload", msg.Payload)
			if err := s.ReloadAll(ctx); err != nil {
				s.log.Warn("rule reload failed", "error", err)
			}
		case <-time.After(60 * time.Second):
			if err := s.ReloadAll(ctx); err != nil {
				s.log.Warn("periodic rule reload failed", "error", err)
			}
		}
	}
}

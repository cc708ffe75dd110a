package mail

import (
	"context"
	"log/slog"

	"github.com/bearfolio/bearfolio/internal/metrics"
)

// Dispatcher はメールを非同期に送信するキュー。
// Enqueueは呼び出し元をブロックしない。キューが満杯の場合はメールを破棄し
// 警告ログとメトリクスに記録する（通知メールはベストエフォート）。
type Dispatcher struct {
	sender  Sender
	queue   chan Message
	metrics metrics.MetricsCollector
	logger  *slog.Logger
}

// NewDispatcher はDispatcherを生成する。
func NewDispatcher(sender Sender, queueSize int, collector metrics.MetricsCollector, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		queue:   make(chan Message, queueSize),
		metrics: collector,
		logger:  logger.With(slog.String("component", "mail_dispatcher")),
	}
}

// Enqueue はメールをキューに追加する。キュー満杯時は破棄してfalseを返す。
func (d *Dispatcher) Enqueue(msg Message) bool {
	select {
	case d.queue <- msg:
		d.metrics.RecordMailQueueDepth(len(d.queue))
		return true
	default:
		d.metrics.RecordMailDropped()
		d.logger.Warn("mail queue full, message dropped",
			slog.String("to", msg.To),
			slog.String("subject", msg.Subject),
		)
		return false
	}
}

// Run はキューを消費してメールを送信し続ける。contextのキャンセルで終了する。
// 送信失敗はログとメトリクスに記録し、リトライはしない。
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("mail dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("mail dispatcher stopped")
			return
		case msg := <-d.queue:
			d.metrics.RecordMailQueueDepth(len(d.queue))
			if err := d.sender.Send(ctx, msg); err != nil {
				d.metrics.RecordMailFailure()
				d.logger.Error("failed to send mail",
					slog.String("to", msg.To),
					slog.String("subject", msg.Subject),
					slog.String("error", err.Error()),
				)
				continue
			}
			d.metrics.RecordMailSent()
			d.logger.Info("mail sent",
				slog.String("to", msg.To),
				slog.String("subject", msg.Subject),
			)
		}
	}
}

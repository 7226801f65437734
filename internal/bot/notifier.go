package bot

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"karma-tycoon/internal/game"
	"karma-tycoon/internal/handler"
)

const (
	// NoticeQueueSize is the number of notices buffered before new ones are dropped
	NoticeQueueSize = 64
	// cleanInterval is how often sent notices are checked for expiry
	cleanInterval = 5 * time.Minute
)

// Sender is the part of *tele.Bot the notifier uses.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Delete(msg tele.Editable) error
}

// sentNotice is a message to be deleted once it is older than the TTL.
type sentNotice struct {
	msg    *tele.Message
	sentAt time.Time
}

// ChatNotifier posts game notices to one chat. Notify never blocks the
// game loop: notices are queued and sent by Run.
type ChatNotifier struct {
	sender Sender
	chat   tele.Recipient
	ttl    time.Duration
	queue  chan game.Notice
	sent   []sentNotice
	now    func() time.Time
}

// NewChatNotifier creates a notifier for chatID. A zero ttl keeps sent
// notices forever.
func NewChatNotifier(sender Sender, chatID int64, ttl time.Duration) *ChatNotifier {
	return &ChatNotifier{
		sender: sender,
		chat:   tele.ChatID(chatID),
		ttl:    ttl,
		queue:  make(chan game.Notice, NoticeQueueSize),
		now:    time.Now,
	}
}

// Notify queues a notice. Energy errors are answered inline by the
// command handler and are not broadcast.
func (n *ChatNotifier) Notify(notice game.Notice) {
	if notice.Kind == game.NoticeEnergyError {
		return
	}
	select {
	case n.queue <- notice:
	default:
		log.Warn().Str("kind", string(notice.Kind)).Msg("Notice queue full, dropping notice")
	}
}

// Run sends queued notices until ctx is done.
func (n *ChatNotifier) Run(ctx context.Context) {
	ticker := time.NewTicker(cleanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case notice := <-n.queue:
			n.send(notice)
		case <-ticker.C:
			n.clean()
		}
	}
}

func (n *ChatNotifier) send(notice game.Notice) {
	msg, err := n.sender.Send(n.chat, handler.RenderNotice(notice))
	if err != nil {
		log.Error().Err(err).Str("kind", string(notice.Kind)).Msg("Failed to send notice")
		return
	}
	if n.ttl > 0 && msg != nil {
		n.sent = append(n.sent, sentNotice{msg: msg, sentAt: n.now()})
	}
}

// clean deletes notices older than the TTL.
func (n *ChatNotifier) clean() {
	now := n.now()
	remaining := n.sent[:0]
	for _, s := range n.sent {
		if now.Sub(s.sentAt) < n.ttl {
			remaining = append(remaining, s)
			continue
		}
		if err := n.sender.Delete(s.msg); err != nil {
			log.Debug().Err(err).Int("msg_id", s.msg.ID).Msg("Failed to delete old notice")
		}
	}
	n.sent = remaining
}

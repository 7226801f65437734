package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"karma-tycoon/internal/game"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    []string
	deleted []int
	fail    bool
}

func (s *fakeSender) Send(to tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errors.New("telegram down")
	}
	s.sent = append(s.sent, to.Recipient()+" "+what.(string))
	return &tele.Message{ID: len(s.sent)}, nil
}

func (s *fakeSender) Delete(msg tele.Editable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := msg.(*tele.Message); ok {
		s.deleted = append(s.deleted, m.ID)
	}
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestChatNotifier_SendsRenderedNotices(t *testing.T) {
	sender := &fakeSender{}
	n := NewChatNotifier(sender, -42, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Run(ctx)
		close(done)
	}()

	n.Notify(game.Notice{Kind: game.NoticeTierUp, Message: "Reached Community Management"})
	n.Notify(game.Notice{Kind: game.NoticeEnergyError, Message: "Not enough energy"})
	n.Notify(game.Notice{Kind: game.NoticeViral, Message: "Viral post in r/funny!"})

	require.Eventually(t, func() bool { return sender.count() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []string{
		"-42 🏆 Reached Community Management",
		"-42 🚀 Viral post in r/funny!",
	}, sender.sent)
}

func TestChatNotifier_NeverBlocks(t *testing.T) {
	n := NewChatNotifier(&fakeSender{}, 1, 0)

	done := make(chan struct{})
	go func() {
		for i := 0; i < NoticeQueueSize*3; i++ {
			n.Notify(game.Notice{Kind: game.NoticeContent, Message: "post"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked with no reader")
	}
	assert.Len(t, n.queue, NoticeQueueSize)
}

func TestChatNotifier_CleanDeletesExpired(t *testing.T) {
	sender := &fakeSender{}
	now := time.Unix(1_700_000_000, 0)
	n := NewChatNotifier(sender, 1, 30*time.Minute)
	n.now = func() time.Time { return now }

	n.send(game.Notice{Kind: game.NoticeContent, Message: "first"})
	now = now.Add(20 * time.Minute)
	n.send(game.Notice{Kind: game.NoticeContent, Message: "second"})
	require.Len(t, n.sent, 2)

	now = now.Add(15 * time.Minute)
	n.clean()

	assert.Equal(t, []int{1}, sender.deleted)
	require.Len(t, n.sent, 1)
	assert.Equal(t, 2, n.sent[0].msg.ID)
}

func TestChatNotifier_SendFailureIsNotTracked(t *testing.T) {
	sender := &fakeSender{fail: true}
	n := NewChatNotifier(sender, 1, time.Minute)

	n.send(game.Notice{Kind: game.NoticeContent, Message: "lost"})
	assert.Empty(t, n.sent)
}

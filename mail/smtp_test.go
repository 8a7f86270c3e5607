package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent  []*gomail.Message
	err   error
	block chan struct{}
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func TestNewSMTPSenderValidation(t *testing.T) {
	_, err := NewSMTPSender(Options{Port: 587, Username: "a@x.com"})
	require.Error(t, err)

	_, err = NewSMTPSender(Options{Host: "smtp.example.com", Port: 587})
	require.Error(t, err)

	s, err := NewSMTPSender(Options{Host: "smtp.example.com", Port: 587, Username: "noreply@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "noreply@example.com", s.from)
}

func TestSendBuildsHTMLMessage(t *testing.T) {
	d := &fakeDialer{}
	s := &SMTPSender{dialer: d, from: "noreply@example.com", name: "Home Finder"}

	err := s.Send(context.Background(), " alice@example.com ", "Verify your email", "<b>1234</b>")
	require.NoError(t, err)
	require.Len(t, d.sent, 1)

	m := d.sent[0]
	assert.Equal(t, []string{"alice@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Verify your email"}, m.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "text/html")
	assert.Contains(t, buf.String(), "<b>1234</b>")
}

func TestSendRejectsSelfAndEmpty(t *testing.T) {
	s := &SMTPSender{dialer: &fakeDialer{}, from: "noreply@example.com"}
	require.Error(t, s.Send(context.Background(), "", "s", "b"))
	require.Error(t, s.Send(context.Background(), "NoReply@example.com", "s", "b"))
}

func TestSendPropagatesFailure(t *testing.T) {
	s := &SMTPSender{dialer: &fakeDialer{err: errors.New("535 auth failed")}, from: "noreply@example.com"}
	require.Error(t, s.Send(context.Background(), "alice@example.com", "s", "b"))
}

func TestSendHonorsContext(t *testing.T) {
	d := &fakeDialer{block: make(chan struct{})}
	defer close(d.block)
	s := &SMTPSender{dialer: d, from: "noreply@example.com"}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Send(ctx, "alice@example.com", "s", "b")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

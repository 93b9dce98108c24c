package services

import (
	"context"
	"time"

	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/runtime"
)

// ChatService is the transport-facing surface over the engine. It adds
// nothing on top today; transports depend on it, not on the engine, so
// the engine stays free to change shape.
type ChatService struct {
	engine *runtime.Engine
}

var _ contract.IChatService = (*ChatService)(nil)

func NewChatService(engine *runtime.Engine) *ChatService {
	return &ChatService{engine: engine}
}

func (s *ChatService) Login(username, password string) (string, error) {
	return s.engine.Login(username, password)
}

func (s *ChatService) Logout(session string) error {
	return s.engine.Logout(session)
}

func (s *ChatService) Channels(session string) ([]domain.ChannelInfo, error) {
	return s.engine.Channels(session)
}

func (s *ChatService) Join(session, channel, password string) (domain.ChannelDetail, error) {
	return s.engine.Join(session, channel, password)
}

func (s *ChatService) Part(session, channel string) error {
	return s.engine.Part(session, channel)
}

func (s *ChatService) Topic(session, channel, text string) error {
	return s.engine.Topic(session, channel, text)
}

func (s *ChatService) Kick(session, channel, username string) error {
	return s.engine.Kick(session, channel, username)
}

func (s *ChatService) Ban(session, channel, username string, state bool) error {
	return s.engine.Ban(session, channel, username, state)
}

func (s *ChatService) Admin(session, channel, username string, state bool) error {
	return s.engine.Admin(session, channel, username, state)
}

func (s *ChatService) Ignore(session, username string, state bool) error {
	return s.engine.Ignore(session, username, state)
}

func (s *ChatService) Privy(session, username, text string) error {
	return s.engine.Privy(session, username, text)
}

func (s *ChatService) Message(session, channel, text string) error {
	return s.engine.Message(session, channel, text)
}

func (s *ChatService) WhatsUp(ctx context.Context, session string, timeout time.Duration) ([]event.WhatsUp, error) {
	return s.engine.WhatsUp(ctx, session, timeout)
}

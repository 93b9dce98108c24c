package runtime

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"chat-hub/auth"
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"chat-hub/ident"
	"chat-hub/locks"
	"chat-hub/moderation"

	"github.com/samber/lo"
)

const (
	// MaxNewsPerRequest bounds one whatsUp batch.
	MaxNewsPerRequest = 8
	// TokenRandomBits is the session token entropy; 8 base-32 chars.
	TokenRandomBits = 40
	// StripedLocks is the entity lock pool size.
	StripedLocks = 32
)

// Engine is the in-memory chat state machine. Every operation follows the
// same template: resolve entities, acquire the lock bundle, re-validate
// under lock, mutate the graph, enqueue events, release. The channel
// directory is fixed at startup and needs no locking for lookups.
type Engine struct {
	log       *slog.Logger
	registry  *Registry
	locks     *locks.Striped
	accounts  contract.IAccountRepository
	channels  map[string]*domain.Channel
	ids       *ident.Generator
	moderator *moderation.Moderator
}

// NewEngine wires the state machine. moderator may be nil to disable
// text censoring.
func NewEngine(log *slog.Logger, registry *Registry,
	accounts contract.IAccountRepository, channels []*domain.Channel,
	moderator *moderation.Moderator) *Engine {

	byName := make(map[string]*domain.Channel, len(channels))
	for _, c := range channels {
		byName[c.Name] = c
	}

	return &Engine{
		log:       log,
		registry:  registry,
		locks:     locks.NewStriped(StripedLocks),
		accounts:  accounts,
		channels:  byName,
		ids:       ident.Bits(TokenRandomBits),
		moderator: moderator,
	}
}

// Login authenticates a seeded account and opens a session. Validation
// order is identity conflict, then password, then username format; the
// password check deliberately precedes the format check.
func (e *Engine) Login(username, password string) (string, error) {
	bundle := e.locks.Acquire("", locks.UserKey(username), "")
	defer bundle.Release()

	if e.registry.LoggedIn(username) {
		return "", errors.NewChatError(errors.AlreadyLoggedIn)
	}

	// An unknown account surfaces as a bad password, not a bad
	// username, so login cannot be used to enumerate accounts.
	acct, err := e.accounts.Get(username)
	if err != nil {
		return "", errors.NewChatError(errors.BadPassword)
	}
	match, err := auth.ComparePassword(password, acct.PasswordHash)
	if err != nil || !match {
		return "", errors.NewChatError(errors.BadPassword)
	}

	if !auth.ValidUsername(username) {
		return "", errors.NewChatError(errors.BadUsername)
	}

	session := e.ids.Next()
	for e.registry.Contains(session) {
		session = e.ids.Next()
	}

	e.registry.Put(domain.NewUser(session, username))
	e.log.Info("session opened", "username", username)
	return session, nil
}

// Logout leaves every joined channel and destroys the session. The part
// calls re-acquire the caller's lock; the striped locks are reentrant so
// the operation cannot deadlock against itself.
func (e *Engine) Logout(session string) error {
	bundle, err := e.lockFor(session, "", "")
	if err != nil {
		return err
	}
	defer bundle.Release()

	cc, err := e.resolve(session, "", "", false)
	if err != nil {
		return err
	}

	for _, ch := range cc.caller.Channels() {
		if err := e.Part(session, ch.Name); err != nil {
			return err
		}
	}

	e.registry.Remove(session)
	e.log.Info("session closed", "username", cc.caller.Username)
	return nil
}

// Channels lists the directory. Resolving the session is the only
// precondition; the listing itself reads immutable startup state.
func (e *Engine) Channels(session string) ([]domain.ChannelInfo, error) {
	bundle, err := e.lockFor(session, "", "")
	if err != nil {
		return nil, err
	}
	defer bundle.Release()

	if _, err := e.resolve(session, "", "", false); err != nil {
		return nil, err
	}

	infos := lo.Map(e.channelList(), func(c *domain.Channel, _ int) domain.ChannelInfo {
		return domain.ChannelInfo{Name: c.Name, HasPassword: c.HasPassword()}
	})
	return infos, nil
}

func (e *Engine) Join(session, channel, password string) (domain.ChannelDetail, error) {
	bundle, err := e.lockFor(session, channel, "")
	if err != nil {
		return domain.ChannelDetail{}, err
	}
	defer bundle.Release()

	// Membership cannot be a precondition of joining, so the caller and
	// the channel are resolved separately here.
	cc, err := e.resolve(session, "", "", false)
	if err != nil {
		return domain.ChannelDetail{}, err
	}
	chn, ok := e.channels[channel]
	if !ok {
		return domain.ChannelDetail{}, errors.NewChatError(errors.BadChannel)
	}

	if chn.Password != password {
		return domain.ChannelDetail{}, errors.NewChatError(errors.BadPassword)
	}
	if chn.IsBanned(cc.caller.Username) {
		return domain.ChannelDetail{}, errors.NewChatError(errors.UnwelcomeBanned)
	}

	addC := chn.AddMember(cc.caller)
	addU := cc.caller.JoinChannel(chn)
	if addC != addU {
		e.log.Warn("join: membership sets out of sync",
			"channel", chn.Name, "username", cc.caller.Username)
	}

	if addC {
		e.fanout(chn, cc.caller.Username, event.NewJoin(chn.Name, cc.caller.Username))
		if chn.IsAdmin(cc.caller.Username) {
			e.fanout(chn, cc.caller.Username, event.NewAdmin(chn.Name, cc.caller.Username, "", true))
		}
	}

	return e.detailView(chn, cc.caller), nil
}

func (e *Engine) Part(session, channel string) error {
	bundle, err := e.lockFor(session, channel, "")
	if err != nil {
		return err
	}
	defer bundle.Release()

	cc, err := e.resolve(session, channel, "", false)
	if err != nil {
		return err
	}

	removeC := cc.channel.RemoveMember(cc.caller.Username)
	removeU := cc.caller.LeaveChannel(cc.channel.Name)
	if removeC != removeU {
		e.log.Warn("part: membership sets out of sync",
			"channel", cc.channel.Name, "username", cc.caller.Username)
	}

	if removeC {
		e.fanout(cc.channel, "", event.NewPart(cc.channel.Name, cc.caller.Username))
	}
	return nil
}

// Topic replaces the channel topic. Admin-gated; no event when the text
// is unchanged.
func (e *Engine) Topic(session, channel, text string) error {
	bundle, err := e.lockFor(session, channel, "")
	if err != nil {
		return err
	}
	defer bundle.Release()

	cc, err := e.resolve(session, channel, "", true)
	if err != nil {
		return err
	}

	if cc.channel.Topic == text {
		return nil
	}
	cc.channel.Topic = text
	e.fanout(cc.channel, "", event.NewTopic(cc.channel.Name, cc.caller.Username, text))
	return nil
}

func (e *Engine) Kick(session, channel, username string) error {
	bundle, err := e.lockFor(session, channel, username)
	if err != nil {
		return err
	}
	defer bundle.Release()

	cc, err := e.resolve(session, channel, username, true)
	if err != nil {
		return err
	}

	removeC := cc.channel.RemoveMember(cc.affected.Username)
	removeU := cc.affected.LeaveChannel(cc.channel.Name)
	if removeC != removeU {
		e.log.Warn("kick: membership sets out of sync",
			"channel", cc.channel.Name, "username", cc.affected.Username)
	}

	if removeC {
		e.fanout(cc.channel, "", event.NewKick(cc.channel.Name, cc.affected.Username, cc.caller.Username))
	}
	return nil
}

func (e *Engine) Ban(session, channel, username string, state bool) error {
	bundle, err := e.lockFor(session, channel, username)
	if err != nil {
		return err
	}
	defer bundle.Release()

	cc, err := e.resolve(session, channel, username, true)
	if err != nil {
		return err
	}

	if cc.channel.SetBanned(cc.affected.Username, state) {
		e.fanout(cc.channel, "", event.NewBan(cc.channel.Name, cc.affected.Username, cc.caller.Username, state))
	}
	return nil
}

func (e *Engine) Admin(session, channel, username string, state bool) error {
	bundle, err := e.lockFor(session, channel, username)
	if err != nil {
		return err
	}
	defer bundle.Release()

	cc, err := e.resolve(session, channel, username, true)
	if err != nil {
		return err
	}

	if cc.channel.SetAdmin(cc.affected.Username, state) {
		e.fanout(cc.channel, "", event.NewAdmin(cc.channel.Name, cc.affected.Username, cc.caller.Username, state))
	}
	return nil
}

// Ignore toggles the caller's ignore entry for a user. Both sides learn
// about the change, and only when the set actually changed.
func (e *Engine) Ignore(session, username string, state bool) error {
	bundle, err := e.lockFor(session, "", username)
	if err != nil {
		return err
	}
	defer bundle.Release()

	cc, err := e.resolve(session, "", username, false)
	if err != nil {
		return err
	}

	if cc.caller.SetIgnored(cc.affected.Username, state) {
		evt := event.NewIgnore(cc.affected.Username, cc.caller.Username, state)
		cc.caller.News.Push(evt)
		cc.affected.News.Push(evt)
	}
	return nil
}

// Privy sends a private note. Nothing is mutated; delivery is silently
// suppressed when the target ignores the caller.
func (e *Engine) Privy(session, username, text string) error {
	bundle, err := e.lockFor(session, "", username)
	if err != nil {
		return err
	}
	defer bundle.Release()

	cc, err := e.resolve(session, "", username, false)
	if err != nil {
		return err
	}

	if cc.affected.Ignores(cc.caller.Username) {
		return nil
	}

	evt := event.NewPrivy(cc.affected.Username, cc.caller.Username, e.censor(text))
	cc.caller.News.Push(evt)
	cc.affected.News.Push(evt)
	return nil
}

// Message fans a channel message out to every member except those who
// have the sender in their ignore set.
func (e *Engine) Message(session, channel, text string) error {
	bundle, err := e.lockFor(session, channel, "")
	if err != nil {
		return err
	}
	defer bundle.Release()

	cc, err := e.resolve(session, channel, "", false)
	if err != nil {
		return err
	}

	evt := event.NewMessage(cc.channel.Name, cc.caller.Username, e.censor(text))
	for _, m := range cc.channel.Members() {
		if m.Ignores(cc.caller.Username) {
			continue
		}
		m.News.Push(evt)
	}
	return nil
}

// WhatsUp drains up to MaxNewsPerRequest pending events. When the first
// pop finds the queue empty it performs exactly one blocking wait bounded
// by timeout; once anything has been obtained the rest is drained without
// blocking. No entity locks are held here: only the owning session
// dequeues, so the window onto its own queue is safe.
func (e *Engine) WhatsUp(ctx context.Context, session string, timeout time.Duration) ([]event.WhatsUp, error) {
	cc, err := e.resolve(session, "", "", false)
	if err != nil {
		return nil, err
	}

	news := make([]event.WhatsUp, 0, MaxNewsPerRequest)
	for len(news) < MaxNewsPerRequest {
		if evt, ok := cc.caller.News.TryPop(); ok {
			news = append(news, evt)
			continue
		}
		if len(news) == 0 {
			waitCtx, cancel := context.WithTimeout(ctx, timeout)
			evt, ok := cc.caller.News.PopWait(waitCtx)
			cancel()
			if ok {
				news = append(news, evt)
				continue
			}
		}
		break
	}
	return news, nil
}

// Sweep force-logs-out every session idle for at least idleThreshold.
// It walks a snapshot and reuses the normal logout path, so it contends
// on the same per-user locks as a client-initiated logout. Returns the
// number of sessions expired.
func (e *Engine) Sweep(now time.Time, idleThreshold time.Duration) int {
	count := 0
	for _, u := range e.registry.Snapshot() {
		if now.Sub(u.LastSeen()) < idleThreshold {
			continue
		}
		if err := e.Logout(u.Session); err != nil {
			e.log.Warn("sweep: logout failed", "username", u.Username, "error", err)
			continue
		}
		e.log.Info("idle session expired", "username", u.Username)
		count++
	}
	return count
}

// Stats exposes coarse counters for the telemetry worker.
func (e *Engine) Stats() contract.EngineStats {
	return contract.EngineStats{
		Sessions: e.registry.Len(),
		Channels: len(e.channels),
	}
}

// ---------------------------------------------------------------------

// callCtx carries the entities one operation touches, resolved and
// re-validated under the operation's lock bundle.
type callCtx struct {
	caller   *domain.User
	channel  *domain.Channel
	affected *domain.User
}

// resolve validates, in order: the session resolves to a live caller
// (BAD_SESSION); the named channel exists (BAD_CHANNEL); the caller is a
// member of it (NO_PERMISSION); the target user is reachable, on the
// channel when one is in scope and otherwise among live sessions
// (BAD_USERNAME); the caller passes the admin gate (NO_PERMISSION).
// A successful resolve touches the caller's idle timestamp.
func (e *Engine) resolve(session, channel, username string, needAdmin bool) (callCtx, error) {
	var cc callCtx

	if session != "" {
		caller, ok := e.registry.Resolve(session)
		if !ok {
			return cc, errors.NewChatError(errors.BadSession)
		}
		cc.caller = caller
	}

	if channel != "" {
		chn, ok := e.channels[channel]
		if !ok {
			return cc, errors.NewChatError(errors.BadChannel)
		}
		cc.channel = chn
	}

	if cc.caller != nil && cc.channel != nil {
		if !cc.channel.IsMember(cc.caller.Username) {
			return cc, errors.NewChatError(errors.NoPermission)
		}
	}

	if username != "" {
		if cc.channel != nil {
			target, ok := cc.channel.Member(username)
			if !ok {
				return cc, errors.NewChatError(errors.BadUsername)
			}
			cc.affected = target
		} else {
			target, ok := e.registry.ResolveUsername(username)
			if !ok {
				return cc, errors.NewChatError(errors.BadUsername)
			}
			cc.affected = target
		}
	}

	if needAdmin && cc.channel != nil && cc.caller != nil {
		if !cc.channel.IsAdmin(cc.caller.Username) {
			return cc, errors.NewChatError(errors.NoPermission)
		}
	}

	if cc.caller != nil {
		cc.caller.Touch()
	}
	return cc, nil
}

// lockFor acquires the operation's bundle. The session is resolved once
// here just to derive the caller's lock key; resolve re-validates it
// under the lock.
func (e *Engine) lockFor(session, channel, username string) (*locks.Bundle, error) {
	callerKey := ""
	if session != "" {
		caller, ok := e.registry.Resolve(session)
		if !ok {
			return nil, errors.NewChatError(errors.BadSession)
		}
		callerKey = locks.UserKey(caller.Username)
	}

	affectedKey := ""
	if username != "" {
		affectedKey = locks.UserKey(username)
	}
	channelKey := ""
	if channel != "" {
		channelKey = locks.ChannelKey(channel)
	}

	return e.locks.Acquire(channelKey, affectedKey, callerKey), nil
}

// fanout enqueues one copy of evt per channel member, skipping the
// excluded username ("" excludes nobody).
func (e *Engine) fanout(ch *domain.Channel, except string, evt event.WhatsUp) {
	for _, m := range ch.Members() {
		if except != "" && m.Username == except {
			continue
		}
		m.News.Push(evt)
	}
}

func (e *Engine) censor(text string) string {
	if e.moderator == nil {
		return text
	}
	return e.moderator.Censor(text)
}

func (e *Engine) detailView(ch *domain.Channel, caller *domain.User) domain.ChannelDetail {
	members := lo.Map(ch.Members(), func(m *domain.User, _ int) domain.ChannelMember {
		return domain.ChannelMember{
			Channel:   ch.Name,
			Username:  m.Username,
			IsAccount: e.accounts.Has(m.Username),
			IsIgnored: caller.Ignores(m.Username),
			IsAdmin:   ch.IsAdmin(m.Username),
			IsBanned:  ch.IsBanned(m.Username),
		}
	})
	sort.Slice(members, func(i, j int) bool { return members[i].Username < members[j].Username })

	return domain.ChannelDetail{
		Name:        ch.Name,
		HasPassword: ch.HasPassword(),
		Topic:       ch.Topic,
		Members:     members,
	}
}

func (e *Engine) channelList() []*domain.Channel {
	out := make([]*domain.Channel, 0, len(e.channels))
	for _, c := range e.channels {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

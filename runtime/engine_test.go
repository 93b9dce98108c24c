package runtime

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"chat-hub/moderation"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
)

type stubAccounts struct {
	hashes map[string]string
}

func (s stubAccounts) Get(username string) (domain.Account, error) {
	h, ok := s.hashes[username]
	if !ok {
		return domain.Account{}, fmt.Errorf("account not found")
	}
	return domain.Account{Username: username, PasswordHash: h}, nil
}

func (s stubAccounts) Has(username string) bool {
	_, ok := s.hashes[username]
	return ok
}

// cheapHash builds a valid Argon2id encoded hash with tiny parameters;
// ComparePassword takes its parameters from the hash itself, so logins
// verify correctly without paying production hashing cost in every test.
func cheapHash(password string) string {
	salt := []byte("0123456789abcdef")
	hash := argon2.IDKey([]byte(password), salt, 1, 1024, 1, 32)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, 1024, 1, 1,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))
}

var (
	fixtureOnce   sync.Once
	fixtureHashes map[string]string
)

func accountFixture() stubAccounts {
	fixtureOnce.Do(func() {
		fixtureHashes = map[string]string{
			"admin":          cheapHash("admin"),
			"student":        cheapHash("student"),
			"guest":          cheapHash("guest"),
			"java":           cheapHash("java"),
			"waytoolongname": cheapHash("secret"),
		}
	})
	return stubAccounts{hashes: fixtureHashes}
}

// newTestEngine seeds the original channel fixture: admin is admin
// everywhere, python pre-bans java, admins is password-protected.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	anybody := domain.NewChannel("anybody", "", "")
	python := domain.NewChannel("python", "", "python lovers")
	admins := domain.NewChannel("admins", "admins", "keep silence")
	for _, c := range []*domain.Channel{anybody, python, admins} {
		c.SetAdmin("admin", true)
	}
	python.SetBanned("java", true)

	return NewEngine(slog.Default(), NewRegistry(), accountFixture(),
		[]*domain.Channel{anybody, python, admins}, nil)
}

func login(t *testing.T, e *Engine, username string) string {
	t.Helper()
	session, err := e.Login(username, username)
	require.NoError(t, err)
	return session
}

// drain empties the pending queue without blocking.
func drain(t *testing.T, e *Engine, session string) []event.WhatsUp {
	t.Helper()
	var all []event.WhatsUp
	for {
		batch, err := e.WhatsUp(context.Background(), session, time.Millisecond)
		require.NoError(t, err)
		if len(batch) == 0 {
			return all
		}
		all = append(all, batch...)
	}
}

func reasonOf(t *testing.T, err error) errors.Reason {
	t.Helper()
	ce, ok := errors.AsChatError(err)
	require.True(t, ok, "expected a chat fault, got %v", err)
	return ce.Reason
}

// --- login / logout -------------------------------------------------

func TestLogin_OpensSession(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)

	session, err := e.Login("student", "student")
	req.NoError(err)
	req.Len(session, 8)

	// The token resolves to the live user
	u, ok := e.registry.Resolve(session)
	req.True(ok)
	req.Equal("student", u.Username)
}

func TestLogin_SecondSessionRejectedEvenWithWrongPassword(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	login(t, e, "student")

	// Identity conflict is checked before the password
	_, err := e.Login("student", "totally-wrong")
	req.Equal(errors.AlreadyLoggedIn, reasonOf(t, err))
}

func TestLogin_BadCredentials(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)

	_, err := e.Login("student", "nope")
	req.Equal(errors.BadPassword, reasonOf(t, err))

	// Unknown accounts surface as a bad password, not a bad username
	_, err = e.Login("nobody", "nope")
	req.Equal(errors.BadPassword, reasonOf(t, err))
}

func TestLogin_FormatCheckedAfterPassword(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)

	// The account exists and the password matches, but the username
	// exceeds the 10 character limit
	_, err := e.Login("waytoolongname", "secret")
	req.Equal(errors.BadUsername, reasonOf(t, err))

	// With a wrong password the earlier check wins
	_, err = e.Login("waytoolongname", "wrong")
	req.Equal(errors.BadPassword, reasonOf(t, err))
}

func TestLogout_LeavesEveryChannelAndEmitsParts(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	admin := login(t, e, "admin")
	student := login(t, e, "student")

	for _, ch := range []string{"anybody", "python"} {
		_, err := e.Join(admin, ch, "")
		req.NoError(err)
		_, err = e.Join(student, ch, "")
		req.NoError(err)
	}
	drain(t, e, admin)

	req.NoError(e.Logout(student))

	// One PART per joined channel reaches the remaining member
	parts := map[string]bool{}
	for _, evt := range drain(t, e, admin) {
		req.Equal(event.Part, evt.What)
		req.Equal("student", evt.Who)
		parts[evt.Channel] = true
	}
	req.Len(parts, 2)

	// The session is gone and both channels forgot the user
	req.Equal(errors.BadSession, reasonOf(t, e.Part(student, "anybody")))
	req.False(e.channels["anybody"].IsMember("student"))
	req.False(e.channels["python"].IsMember("student"))
}

// --- channels / join / part -----------------------------------------

func TestChannels_ListsDirectory(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	session := login(t, e, "student")

	infos, err := e.Channels(session)
	req.NoError(err)
	req.Equal([]domain.ChannelInfo{
		{Name: "admins", HasPassword: true},
		{Name: "anybody", HasPassword: false},
		{Name: "python", HasPassword: false},
	}, infos)

	_, err = e.Channels("bogus")
	req.Equal(errors.BadSession, reasonOf(t, err))
}

func TestJoin_SymmetricMembershipAndDetail(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	session := login(t, e, "student")

	detail, err := e.Join(session, "python", "")
	req.NoError(err)
	req.Equal("python", detail.Name)
	req.Equal("python lovers", detail.Topic)
	req.False(detail.HasPassword)
	req.Len(detail.Members, 1)
	req.Equal("student", detail.Members[0].Username)
	req.True(detail.Members[0].IsAccount)

	// Membership is symmetric between channel and user
	u, _ := e.registry.Resolve(session)
	req.True(e.channels["python"].IsMember("student"))
	req.Len(u.Channels(), 1)
}

func TestJoin_FanoutToOthersOnly(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	admin := login(t, e, "admin")
	student := login(t, e, "student")

	_, err := e.Join(student, "anybody", "")
	req.NoError(err)

	_, err = e.Join(admin, "anybody", "")
	req.NoError(err)

	// The earlier member sees JOIN plus ADMIN ON (admin is a channel
	// admin); the joiner sees nothing about itself
	got := drain(t, e, student)
	req.Len(got, 2)
	req.Equal(event.Join, got[0].What)
	req.Equal("admin", got[0].Who)
	req.Equal(event.Admin, got[1].What)
	req.Equal("ON", got[1].Text)

	req.Empty(drain(t, e, admin))
}

func TestJoin_SecondTimeIsQuiet(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	admin := login(t, e, "admin")
	student := login(t, e, "student")

	_, err := e.Join(admin, "anybody", "")
	req.NoError(err)
	_, err = e.Join(student, "anybody", "")
	req.NoError(err)
	drain(t, e, admin)

	// Re-joining changes nothing and emits nothing
	_, err = e.Join(student, "anybody", "")
	req.NoError(err)
	req.Empty(drain(t, e, admin))
}

func TestJoin_Faults(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	java := login(t, e, "java")
	student := login(t, e, "student")

	_, err := e.Join(student, "ghost-town", "")
	req.Equal(errors.BadChannel, reasonOf(t, err))

	_, err = e.Join(student, "admins", "wrong")
	req.Equal(errors.BadPassword, reasonOf(t, err))

	// Banned stays banned even with the right (empty) password
	_, err = e.Join(java, "python", "")
	req.Equal(errors.UnwelcomeBanned, reasonOf(t, err))
}

func TestJoin_PasswordProtectedChannel(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	admin := login(t, e, "admin")

	detail, err := e.Join(admin, "admins", "admins")
	req.NoError(err)
	req.True(detail.HasPassword)
}

func TestPart_RequiresMembership(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	student := login(t, e, "student")

	req.Equal(errors.NoPermission, reasonOf(t, e.Part(student, "anybody")))
}

func TestPart_NotifiesRemainingMembers(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	admin := login(t, e, "admin")
	student := login(t, e, "student")

	_, err := e.Join(admin, "anybody", "")
	req.NoError(err)
	_, err = e.Join(student, "anybody", "")
	req.NoError(err)
	drain(t, e, admin)

	req.NoError(e.Part(student, "anybody"))

	got := drain(t, e, admin)
	req.Len(got, 1)
	req.Equal(event.Part, got[0].What)
	req.Equal("student", got[0].Who)

	// Both directions forgot the membership
	u, _ := e.registry.Resolve(student)
	req.False(e.channels["anybody"].IsMember("student"))
	req.Empty(u.Channels())
}

// --- moderation-gated operations ------------------------------------

func TestTopic_AdminGateAndChangeDetection(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	admin := login(t, e, "admin")
	student := login(t, e, "student")

	_, err := e.Join(admin, "python", "")
	req.NoError(err)
	_, err = e.Join(student, "python", "")
	req.NoError(err)
	drain(t, e, admin)
	drain(t, e, student)

	// Non-admins may not touch the topic
	req.Equal(errors.NoPermission, reasonOf(t, e.Topic(student, "python", "new topic")))

	req.NoError(e.Topic(admin, "python", "new topic"))
	req.Equal("new topic", e.channels["python"].Topic)

	// All members get TOPIC, the setter included
	for _, session := range []string{admin, student} {
		got := drain(t, e, session)
		req.Len(got, 1)
		req.Equal(event.Topic, got[0].What)
		req.Equal("new topic", got[0].Text)
	}

	// Setting the same text again is quiet
	req.NoError(e.Topic(admin, "python", "new topic"))
	req.Empty(drain(t, e, student))
}

func TestKick_RemovesTargetAndNotifiesRemaining(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	admin := login(t, e, "admin")
	student := login(t, e, "student")
	guest := login(t, e, "guest")

	for _, s := range []string{admin, student, guest} {
		_, err := e.Join(s, "anybody", "")
		req.NoError(err)
	}
	drain(t, e, admin)
	drain(t, e, student)
	drain(t, e, guest)

	req.NoError(e.Kick(admin, "anybody", "guest"))

	req.False(e.channels["anybody"].IsMember("guest"))
	u, _ := e.registry.Resolve(guest)
	req.Empty(u.Channels())

	// Remaining members hear about it; the kicked user does not
	for _, session := range []string{admin, student} {
		got := drain(t, e, session)
		req.Len(got, 1)
		req.Equal(event.Kick, got[0].What)
		req.Equal("guest", got[0].Who)
		req.Equal("admin", got[0].By)
	}
	req.Empty(drain(t, e, guest))
}

func TestKick_Faults(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	admin := login(t, e, "admin")
	student := login(t, e, "student")
	guest := login(t, e, "guest")

	_, err := e.Join(admin, "anybody", "")
	req.NoError(err)
	_, err = e.Join(student, "anybody", "")
	req.NoError(err)
	_, err = e.Join(guest, "anybody", "")
	req.NoError(err)

	// The target must currently be a member
	req.Equal(errors.BadUsername, reasonOf(t, e.Kick(admin, "anybody", "java")))

	// Non-admins may not kick
	req.Equal(errors.NoPermission, reasonOf(t, e.Kick(student, "anybody", "guest")))
}

func TestBan_EmitsExactlyOncePerTransition(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	admin := login(t, e, "admin")
	student := login(t, e, "student")

	_, err := e.Join(admin, "anybody", "")
	req.NoError(err)
	_, err = e.Join(student, "anybody", "")
	req.NoError(err)
	drain(t, e, admin)
	drain(t, e, student)

	// Banning twice produces exactly one BAN event
	req.NoError(e.Ban(admin, "anybody", "student", true))
	req.NoError(e.Ban(admin, "anybody", "student", true))

	got := drain(t, e, student)
	req.Len(got, 1)
	req.Equal(event.Ban, got[0].What)
	req.Equal("ON", got[0].Text)
	req.Equal("student", got[0].Who)
	req.Equal("admin", got[0].By)
	drain(t, e, admin)

	// Lifting the ban is one more transition
	req.NoError(e.Ban(admin, "anybody", "student", false))
	got = drain(t, e, student)
	req.Len(got, 1)
	req.Equal("OFF", got[0].Text)

	// Ban status does not evict the member
	req.True(e.channels["anybody"].IsMember("student"))
}

func TestAdmin_ToggleIsIdempotentPerState(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	admin := login(t, e, "admin")
	student := login(t, e, "student")

	_, err := e.Join(admin, "anybody", "")
	req.NoError(err)
	_, err = e.Join(student, "anybody", "")
	req.NoError(err)
	drain(t, e, admin)
	drain(t, e, student)

	req.NoError(e.Admin(admin, "anybody", "student", true))
	req.NoError(e.Admin(admin, "anybody", "student", true))

	got := drain(t, e, student)
	req.Len(got, 1)
	req.Equal(event.Admin, got[0].What)
	req.Equal("ON", got[0].Text)
	req.True(e.channels["anybody"].IsAdmin("student"))
}

// --- ignore / privy / message ---------------------------------------

func TestIgnore_NotifiesBothSidesOnce(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	student := login(t, e, "student")
	guest := login(t, e, "guest")

	req.NoError(e.Ignore(student, "guest", true))
	req.NoError(e.Ignore(student, "guest", true))

	for _, session := range []string{student, guest} {
		got := drain(t, e, session)
		req.Len(got, 1)
		req.Equal(event.Ignore, got[0].What)
		req.Equal("guest", got[0].Who)
		req.Equal("student", got[0].By)
		req.Equal("ON", got[0].Text)
	}
}

func TestIgnore_TargetMustBeOnline(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	student := login(t, e, "student")

	req.Equal(errors.BadUsername, reasonOf(t, e.Ignore(student, "guest", true)))
}

func TestPrivy_DeliveredToBothParties(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	student := login(t, e, "student")
	guest := login(t, e, "guest")

	req.NoError(e.Privy(student, "guest", "psst"))

	for _, session := range []string{student, guest} {
		got := drain(t, e, session)
		req.Len(got, 1)
		req.Equal(event.Privy, got[0].What)
		req.Equal("psst", got[0].Text)
		req.Empty(got[0].Channel)
	}
}

func TestPrivy_SuppressedWhenTargetIgnoresCaller(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	student := login(t, e, "student")
	guest := login(t, e, "guest")

	req.NoError(e.Ignore(guest, "student", true))
	drain(t, e, student)
	drain(t, e, guest)

	req.NoError(e.Privy(student, "guest", "psst"))

	// Neither side gets the note
	req.Empty(drain(t, e, student))
	req.Empty(drain(t, e, guest))
}

func TestMessage_SkipsMembersIgnoringSender(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	admin := login(t, e, "admin")
	student := login(t, e, "student")
	guest := login(t, e, "guest")

	for _, s := range []string{admin, student, guest} {
		_, err := e.Join(s, "anybody", "")
		req.NoError(err)
	}
	req.NoError(e.Ignore(guest, "student", true))
	drain(t, e, admin)
	drain(t, e, student)
	drain(t, e, guest)

	req.NoError(e.Message(student, "anybody", "hello all"))

	// The sender and the non-ignoring member receive it
	for _, session := range []string{admin, student} {
		got := drain(t, e, session)
		req.Len(got, 1)
		req.Equal(event.Message, got[0].What)
		req.Equal("hello all", got[0].Text)
	}
	// The ignoring member does not
	req.Empty(drain(t, e, guest))
}

func TestMessage_RequiresMembership(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	student := login(t, e, "student")

	req.Equal(errors.NoPermission, reasonOf(t, e.Message(student, "anybody", "hi")))
}

func TestMessage_CensorsConfiguredWords(t *testing.T) {
	req := require.New(t)

	mod, err := moderation.NewModerator([]string{"bike"}, '*')
	req.NoError(err)

	anybody := domain.NewChannel("anybody", "", "")
	e := NewEngine(slog.Default(), NewRegistry(), accountFixture(),
		[]*domain.Channel{anybody}, mod)

	student := login(t, e, "student")
	_, err = e.Join(student, "anybody", "")
	req.NoError(err)

	req.NoError(e.Message(student, "anybody", "nice bike"))

	got := drain(t, e, student)
	req.Len(got, 1)
	req.Equal("nice ****", got[0].Text)
}

// --- whatsUp ---------------------------------------------------------

func TestWhatsUp_EmptyQueueWaitsFullTimeout(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	student := login(t, e, "student")

	start := time.Now()
	news, err := e.WhatsUp(context.Background(), student, 50*time.Millisecond)
	elapsed := time.Since(start)

	req.NoError(err)
	req.Empty(news)
	req.GreaterOrEqual(elapsed, 50*time.Millisecond)
}

func TestWhatsUp_BatchLimitThenRemainderWithoutBlocking(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	student := login(t, e, "student")

	u, _ := e.registry.Resolve(student)
	for i := 0; i < 10; i++ {
		u.News.Push(event.NewMessage("anybody", "admin", fmt.Sprintf("m%d", i)))
	}

	first, err := e.WhatsUp(context.Background(), student, time.Second)
	req.NoError(err)
	req.Len(first, MaxNewsPerRequest)
	req.Equal("m0", first[0].Text)

	start := time.Now()
	second, err := e.WhatsUp(context.Background(), student, time.Second)
	req.NoError(err)
	req.Len(second, 2)
	req.Equal("m8", second[0].Text)
	req.Equal("m9", second[1].Text)
	req.Less(time.Since(start), 500*time.Millisecond)
}

func TestWhatsUp_WakesOnFirstEvent(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	admin := login(t, e, "admin")
	student := login(t, e, "student")

	_, err := e.Join(student, "anybody", "")
	req.NoError(err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_, _ = e.Join(admin, "anybody", "")
	}()

	news, err := e.WhatsUp(context.Background(), student, time.Second)
	req.NoError(err)
	req.NotEmpty(news)
	req.Equal(event.Join, news[0].What)
}

func TestWhatsUp_BadSession(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)

	_, err := e.WhatsUp(context.Background(), "bogus", time.Millisecond)
	req.Equal(errors.BadSession, reasonOf(t, err))
}

// --- idle sweep ------------------------------------------------------

func TestSweep_ExpiresOnlyIdleSessions(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	admin := login(t, e, "admin")
	student := login(t, e, "student")

	_, err := e.Join(admin, "anybody", "")
	req.NoError(err)
	_, err = e.Join(student, "anybody", "")
	req.NoError(err)
	drain(t, e, admin)

	// Pretend three minutes pass, then the admin stays active
	threshold := 3 * time.Minute
	future := time.Now().Add(threshold)
	u, _ := e.registry.Resolve(admin)
	u.Touch()
	adminSeen := u.LastSeen()

	count := e.Sweep(future.Add(time.Nanosecond), future.Sub(adminSeen)+time.Minute)
	req.Zero(count)

	count = e.Sweep(future, threshold)
	req.Equal(1, count)

	// The idle student was fully logged out: session gone, channel left,
	// PART delivered to the survivor
	req.False(e.registry.LoggedIn("student"))
	req.False(e.channels["anybody"].IsMember("student"))
	got := drain(t, e, admin)
	req.Len(got, 1)
	req.Equal(event.Part, got[0].What)
	req.Equal("student", got[0].Who)
}

// --- concurrency smoke ----------------------------------------------

func TestMessage_ConcurrentIgnoreOfBystander(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	admin := login(t, e, "admin")
	student := login(t, e, "student")
	guest := login(t, e, "guest")

	for _, s := range []string{admin, student, guest} {
		_, err := e.Join(s, "anybody", "")
		req.NoError(err)
	}

	// The fanout reads the student's ignore set under the channel and
	// sender stripes only, while the ignore toggle targets a bystander
	// and so holds a disjoint stripe pair
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if err := e.Message(admin, "anybody", "ping"); err != nil {
				errs <- err
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if err := e.Ignore(student, "guest", i%2 == 0); err != nil {
				errs <- err
				return
			}
		}
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		req.NoError(err)
	}

	// The guest never ignored anyone, so it saw every message
	guestUser, ok := e.registry.Resolve(guest)
	req.True(ok)
	req.GreaterOrEqual(guestUser.News.Len(), 200)
}

func TestConcurrentTrafficKeepsGraphSymmetric(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)

	sessions := []string{
		login(t, e, "admin"),
		login(t, e, "student"),
		login(t, e, "guest"),
	}
	channels := []string{"anybody", "python"}

	var wg sync.WaitGroup
	for _, session := range sessions {
		wg.Add(1)
		go func(s string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				ch := channels[i%len(channels)]
				if _, err := e.Join(s, ch, ""); err != nil {
					continue
				}
				_ = e.Message(s, ch, "ping")
				_ = e.Part(s, ch)
			}
		}(session)
	}
	wg.Wait()

	// Membership stayed symmetric on both sides of the graph
	for _, name := range channels {
		ch := e.channels[name]
		for _, m := range ch.Members() {
			found := false
			for _, joined := range m.Channels() {
				if joined.Name == name {
					found = true
				}
			}
			req.True(found, "channel %s lists %s but the user disagrees", name, m.Username)
		}
	}
	for _, session := range sessions {
		u, ok := e.registry.Resolve(session)
		req.True(ok)
		for _, joined := range u.Channels() {
			req.True(joined.IsMember(u.Username),
				"user %s lists %s but the channel disagrees", u.Username, joined.Name)
		}
	}
}

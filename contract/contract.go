package contract

import (
	"context"
	"reflect"
	"time"

	"chat-hub/domain"
	"chat-hub/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding the need for manual naming in the Worker
// interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// IChatService is the transport-independent operation set of the chat
// core. Every method returns a typed chat fault on validation failure.
type IChatService interface {
	Login(username, password string) (string, error)
	Logout(session string) error
	Channels(session string) ([]domain.ChannelInfo, error)
	Join(session, channel, password string) (domain.ChannelDetail, error)
	Part(session, channel string) error
	Topic(session, channel, text string) error
	Kick(session, channel, username string) error
	Ban(session, channel, username string, state bool) error
	Admin(session, channel, username string, state bool) error
	Ignore(session, username string, state bool) error
	Privy(session, username, text string) error
	Message(session, channel, text string) error
	WhatsUp(ctx context.Context, session string, timeout time.Duration) ([]event.WhatsUp, error)
}

// IAccountRepository reads the seeded account directory.
type IAccountRepository interface {
	Get(username string) (domain.Account, error)
	Has(username string) bool
}

// EngineStats are coarse counters reported by the telemetry worker.
type EngineStats struct {
	Sessions int
	Channels int
}

// IStatsSource is anything that can report engine counters.
type IStatsSource interface {
	Stats() EngineStats
}

// ISessionSweeper expires idle sessions; the sweeper worker drives it.
type ISessionSweeper interface {
	Sweep(now time.Time, idleThreshold time.Duration) int
}

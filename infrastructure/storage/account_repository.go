package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"chat-hub/domain"

	"github.com/dgraph-io/badger/v4"
)

var ErrAccountNotFound = errors.New("account not found")

const accountKeyPrefix = "account:"

// AccountRepository keeps the seeded account directory in a Badger
// instance. The process opens Badger in-memory: the directory is fixed
// at startup and nothing survives a restart on purpose.
type AccountRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewAccountRepository(db *badger.DB, log *slog.Logger) *AccountRepository {
	return &AccountRepository{db: db, log: log}
}

type accountRecord struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
}

// Put stores one account. Only the startup seeding calls this.
func (r *AccountRepository) Put(acct domain.Account) error {
	data, err := json.Marshal(accountRecord{
		Username:     acct.Username,
		PasswordHash: acct.PasswordHash,
	})
	if err != nil {
		return fmt.Errorf("marshal account %q: %w", acct.Username, err)
	}

	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(accountKeyPrefix+acct.Username), data)
	})
}

func (r *AccountRepository) Get(username string) (domain.Account, error) {
	var acct domain.Account

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(accountKeyPrefix + username))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrAccountNotFound
			}
			return err
		}
		return item.Value(func(v []byte) error {
			var rec accountRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshal account %q: %w", username, err)
			}
			acct = domain.Account{Username: rec.Username, PasswordHash: rec.PasswordHash}
			return nil
		})
	})
	if err != nil {
		return domain.Account{}, err
	}
	return acct, nil
}

// Has reports whether a username belongs to a seeded account. Used for
// the isAccount flag in channel member views.
func (r *AccountRepository) Has(username string) bool {
	_, err := r.Get(username)
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		r.log.Warn("account lookup failed", "username", username, "error", err)
	}
	return err == nil
}

// Count returns the number of seeded accounts; seeding logs it once.
func (r *AccountRepository) Count() (int, error) {
	count := 0
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(accountKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

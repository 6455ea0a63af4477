package livesync

import (
	"sync"

	"github.com/mmcdole/awsync/internal/domain"
)

// Account mirrors the authenticated user. Every event on the account
// channel triggers a re-fetch; the policy option is ignored.
type Account struct {
	*Unit[*domain.User]

	repo  domain.AccountRepository
	store domain.SnapshotStore

	mu      sync.Mutex
	started bool
}

// NewAccount creates a stopped account unit
func NewAccount(repo domain.AccountRepository, sub domain.Subscriber, opts ...Option) *Account {
	o := buildOptions(opts)
	o.policy = PolicyCoarse
	return &Account{
		Unit:  newUnit[*domain.User]("account", sub, o),
		repo:  repo,
		store: o.store,
	}
}

// Start fetches the account and subscribes for the lifetime of the unit.
// Calling Start on a running unit does nothing.
func (a *Account) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return
	}
	a.started = true

	b := &binding[*domain.User]{
		channel: domain.AccountChannel,
		fetch:   a.repo.GetAccount,
	}
	if a.store != nil {
		b.seed = a.store.GetAccount
		b.persist = func(u *domain.User) {
			if err := a.store.SaveAccount(u); err != nil {
				a.logger.Error("failed to cache account", "error", err)
			}
		}
	}
	a.bind(b)
}

// SetPolicy is a no-op: account events never carry a patchable record
func (a *Account) SetPolicy(Policy) {}

// Stop releases the subscription. It is safe to call more than once.
func (a *Account) Stop() {
	a.mu.Lock()
	a.started = false
	a.mu.Unlock()
	a.stop()
}

package livesync

import (
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/mmcdole/awsync/internal/domain"
)

func TestAccountStartAndRefetchOnAnyEvent(t *testing.T) {
	repo := &fakeAccount{user: &domain.User{ID: "u1", Name: "Ada"}}
	sub := &fakeSubscriber{}
	a := NewAccount(repo, sub, WithLogger(nullLogger()), WithPolicy(PolicyFine))

	a.Start()
	a.Start()
	a.Wait()

	assert.Equal(t, repo.count(), 1)
	assert.Equal(t, sub.active(), []string{"account"})
	assert.Equal(t, a.State().Value.Name, "Ada")
	assert.Equal(t, a.Policy(), PolicyCoarse)

	repo.mu.Lock()
	repo.user = &domain.User{ID: "u1", Name: "Ada L."}
	repo.mu.Unlock()

	sub.publish(domain.AccountChannel, domain.Event{
		Events:  []string{"users.u1.update.prefs", "users.*.update"},
		Payload: []byte(`{"$id":"u1","name":"ignored"}`),
	})
	a.Wait()

	assert.Equal(t, repo.count(), 2)
	assert.Equal(t, a.State().Value.Name, "Ada L.")
}

func TestAccountUnauthorized(t *testing.T) {
	repo := &fakeAccount{err: &domain.ServiceError{Code: 401, Type: "general_unauthorized_scope", Message: "missing scope"}}
	a := NewAccount(repo, &fakeSubscriber{}, WithLogger(nullLogger()))

	a.Start()
	a.Wait()

	state := a.State()
	assert.Equal(t, state.Loaded, false)
	assert.Equal(t, errors.Is(state.Err, domain.ErrUnauthorized), true)
	assert.Equal(t, state.Value == nil, true)
}

func TestAccountStopIsIdempotent(t *testing.T) {
	repo := &fakeAccount{user: &domain.User{ID: "u1"}}
	sub := &fakeSubscriber{}
	a := NewAccount(repo, sub, WithLogger(nullLogger()))
	a.Start()
	a.Wait()

	a.Stop()
	a.Stop()

	subscribes, releases := sub.counts()
	assert.Equal(t, subscribes, 1)
	assert.Equal(t, releases, 1)
	assert.Equal(t, repo.count(), 1)
}

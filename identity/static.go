package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/docledger/document-registry-backend/interfaces"
)

// StaticProvider is an in-memory IdentityProvider with a fixed user set,
// used for tests and local development.
type StaticProvider struct {
	mu          sync.Mutex
	byEmail     map[string]staticAccount
	sessions    map[string]*interfaces.User
	subscribers []authSubscription
	nextSubID   int
}

type staticAccount struct {
	password string
	user     interfaces.User
}

// NewStaticProvider creates an empty provider. Accounts are added with
// AddUser.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		byEmail:  make(map[string]staticAccount),
		sessions: make(map[string]*interfaces.User),
	}
}

// AddUser registers an account and returns its user record.
func (p *StaticProvider) AddUser(email, password, role string) *interfaces.User {
	user := interfaces.User{ID: uuid.New().String(), Email: email, Role: role}
	p.mu.Lock()
	p.byEmail[email] = staticAccount{password: password, user: user}
	p.mu.Unlock()
	return &user
}

func (p *StaticProvider) SignIn(ctx context.Context, email, password string) (string, *interfaces.User, error) {
	p.mu.Lock()
	account, ok := p.byEmail[email]
	if !ok || account.password != password {
		p.mu.Unlock()
		return "", nil, fmt.Errorf("%w: invalid credentials", interfaces.ErrNotAuthenticated)
	}
	token := uuid.New().String()
	user := account.user
	p.sessions[token] = &user
	p.mu.Unlock()

	p.notify(&user)
	return token, &user, nil
}

func (p *StaticProvider) SignOut(ctx context.Context, token string) error {
	p.mu.Lock()
	delete(p.sessions, token)
	p.mu.Unlock()

	p.notify(nil)
	return nil
}

func (p *StaticProvider) SessionUser(ctx context.Context, token string) (*interfaces.User, error) {
	p.mu.Lock()
	user, ok := p.sessions[token]
	p.mu.Unlock()
	if !ok {
		return nil, interfaces.ErrNotAuthenticated
	}
	copied := *user
	return &copied, nil
}

func (p *StaticProvider) OnAuthChange(cb func(*interfaces.User)) func() {
	p.mu.Lock()
	id := p.nextSubID
	p.nextSubID++
	p.subscribers = append(p.subscribers, authSubscription{id: id, cb: cb})
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		for i, sub := range p.subscribers {
			if sub.id == id {
				p.subscribers = append(p.subscribers[:i], p.subscribers[i+1:]...)
				break
			}
		}
		p.mu.Unlock()
	}
}

func (p *StaticProvider) RoleOf(user *interfaces.User) string {
	if user == nil {
		return ""
	}
	return user.Role
}

func (p *StaticProvider) notify(user *interfaces.User) {
	p.mu.Lock()
	subs := make([]authSubscription, len(p.subscribers))
	copy(subs, p.subscribers)
	p.mu.Unlock()

	for _, sub := range subs {
		sub.cb(user)
	}
}

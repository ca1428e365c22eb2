package auth

import (
	"context"
	"sort"
	"strings"
	"time"

	"invoicely/models"
)

// memStore is an in-memory stand-in for the three auth tables.
type memStore struct {
	users    map[string]*models.User
	sessions map[string]*models.Session
	tokens   map[string]*models.RefreshToken
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*models.User{},
		sessions: map[string]*models.Session{},
		tokens:   map[string]*models.RefreshToken{},
	}
}

func (m *memStore) repos() Repositories {
	return Repositories{Users: memUsers{m}, Sessions: memSessions{m}, RefreshTokens: memTokens{m}}
}

type memUsers struct{ m *memStore }

func (r memUsers) Create(_ context.Context, u *models.User) error {
	cp := *u
	r.m.users[u.ID] = &cp
	return nil
}

func (r memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := r.m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memUsers) LockByID(ctx context.Context, id string) (*models.User, error) {
	return r.GetByID(ctx, id)
}

func (r memUsers) List(context.Context) ([]models.User, error) {
	out := []models.User{}
	for _, u := range r.m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r memUsers) Update(_ context.Context, u *models.User) error {
	cp := *u
	r.m.users[u.ID] = &cp
	return nil
}

func (r memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	r.m.users[id].PasswordHash = hash
	return nil
}

func (r memUsers) Delete(_ context.Context, id string) (bool, error) {
	_, ok := r.m.users[id]
	delete(r.m.users, id)
	return ok, nil
}

type memSessions struct{ m *memStore }

func (r memSessions) Create(_ context.Context, s *models.Session) error {
	cp := *s
	r.m.sessions[s.ID] = &cp
	return nil
}

func (r memSessions) Get(_ context.Context, id string) (*models.Session, error) {
	s, ok := r.m.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r memSessions) FindActiveByIP(_ context.Context, userID, ip string, now time.Time) (*models.Session, error) {
	for _, s := range r.m.sessions {
		if s.UserID == userID && s.IPAddress == ip && s.ExpiresAt.After(now) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memSessions) CountActiveIPs(_ context.Context, userID string, now time.Time) (int, error) {
	ips := map[string]bool{}
	for _, s := range r.m.sessions {
		if s.UserID == userID && s.ExpiresAt.After(now) {
			ips[s.IPAddress] = true
		}
	}
	return len(ips), nil
}

func (r memSessions) ListActive(_ context.Context, userID string, now time.Time) ([]models.Session, error) {
	out := []models.Session{}
	for _, s := range r.m.sessions {
		if s.UserID == userID && s.ExpiresAt.After(now) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memSessions) Touch(_ context.Context, id string, seenAt, expiresAt time.Time) error {
	if s, ok := r.m.sessions[id]; ok {
		s.LastSeenAt, s.ExpiresAt = seenAt, expiresAt
	}
	return nil
}

func (r memSessions) Delete(_ context.Context, id string) error {
	delete(r.m.sessions, id)
	r.m.dropTokensOf(id)
	return nil
}

func (r memSessions) DeleteForUser(_ context.Context, userID string) ([]string, error) {
	return r.deleteWhere(func(s *models.Session) bool { return s.UserID == userID }), nil
}

func (r memSessions) DeleteOthers(_ context.Context, userID, keepID string) ([]string, error) {
	return r.deleteWhere(func(s *models.Session) bool { return s.UserID == userID && s.ID != keepID }), nil
}

func (r memSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return int64(len(r.deleteWhere(func(s *models.Session) bool { return !s.ExpiresAt.After(now) }))), nil
}

func (r memSessions) deleteWhere(match func(*models.Session) bool) []string {
	ids := []string{}
	for id, s := range r.m.sessions {
		if match(s) {
			ids = append(ids, id)
			delete(r.m.sessions, id)
			r.m.dropTokensOf(id)
		}
	}
	return ids
}

// dropTokensOf mirrors the ON DELETE CASCADE from sessions.
func (m *memStore) dropTokensOf(sessionID string) {
	for k, t := range m.tokens {
		if t.SessionID == sessionID {
			delete(m.tokens, k)
		}
	}
}

type memTokens struct{ m *memStore }

func (r memTokens) Create(_ context.Context, rt *models.RefreshToken) error {
	cp := *rt
	r.m.tokens[rt.UserID+"/"+rt.TokenHash] = &cp
	return nil
}

func (r memTokens) Consume(_ context.Context, userID, hash string) (*models.RefreshToken, error) {
	key := userID + "/" + hash
	rt, ok := r.m.tokens[key]
	if !ok {
		return nil, nil
	}
	delete(r.m.tokens, key)
	return rt, nil
}

func (r memTokens) DeleteBySession(_ context.Context, sessionID string) error {
	r.m.dropTokensOf(sessionID)
	return nil
}

func (r memTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for k, t := range r.m.tokens {
		if !t.ExpiresAt.After(now) {
			delete(r.m.tokens, k)
			n++
		}
	}
	return n, nil
}

// memCache records what the service remembers and forgets.
type memCache struct {
	alive map[string]bool
}

func newMemCache() *memCache { return &memCache{alive: map[string]bool{}} }

func (c *memCache) Alive(_ context.Context, sid string) (bool, bool) {
	alive, ok := c.alive[sid]
	return alive, ok
}

func (c *memCache) Remember(_ context.Context, sid, _ string) { c.alive[sid] = true }

func (c *memCache) Forget(_ context.Context, sids ...string) {
	for _, sid := range sids {
		delete(c.alive, sid)
	}
}

type recordingAudit struct {
	actions []models.AuditAction
}

func (a *recordingAudit) Record(_ context.Context, e models.AuditEvent) {
	a.actions = append(a.actions, e.Action)
}

func (a *recordingAudit) List(context.Context, string, int) ([]models.AuditEvent, error) {
	return nil, nil
}

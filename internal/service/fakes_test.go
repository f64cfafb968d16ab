package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/harbor-im/harbor/internal/events"
	"github.com/harbor-im/harbor/internal/gateway"
	"github.com/harbor-im/harbor/internal/model"
	"github.com/harbor-im/harbor/internal/protocol"
	"github.com/harbor-im/harbor/internal/repository"
)

// recorderTransport captures every pushed envelope for assertions.
type recorderTransport struct {
	mu     sync.Mutex
	writes []any
}

func (r *recorderTransport) WriteJSON(v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, v)
	return nil
}

func (r *recorderTransport) Close() error { return nil }

// Envelopes returns the captured pushes as outbound envelopes.
func (r *recorderTransport) Envelopes() []protocol.Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]protocol.Outbound, 0, len(r.writes))
	for _, w := range r.writes {
		if env, ok := w.(protocol.Outbound); ok {
			out = append(out, env)
		}
	}
	return out
}

// EnvelopesOf filters captured pushes by discriminator.
func (r *recorderTransport) EnvelopesOf(envType string) []protocol.Outbound {
	var out []protocol.Outbound
	for _, env := range r.Envelopes() {
		if env.Type == envType {
			out = append(out, env)
		}
	}
	return out
}

// connect registers a fresh connection for userID and returns its recorder.
func connect(registry *gateway.Registry, userID string) *recorderTransport {
	tr := &recorderTransport{}
	registry.Register(userID, gateway.NewConnection(userID, tr))
	return tr
}

// capturePublisher records published events.
type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturePublisher) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, len(p.events))
	for i, e := range p.events {
		names[i] = e.Name
	}
	return names
}

// fakeUserRepo is an in-memory IUserRepository.
type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[string]*model.User
	contacts map[string]map[string]bool
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{
		users:    map[string]*model.User{},
		contacts: map[string]map[string]bool{},
	}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; ok {
		return errors.New("duplicate user id")
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) FindByIDs(_ context.Context, ids []string) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.User
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) FindByUserName(_ context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.UserName == username {
			return user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) UpdateStatus(_ context.Context, id string, status int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		user.Status = status
	}
	return nil
}

func (r *fakeUserRepo) AddContactPair(_ context.Context, userID, contactID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pair := range [][2]string{{userID, contactID}, {contactID, userID}} {
		if r.contacts[pair[0]] == nil {
			r.contacts[pair[0]] = map[string]bool{}
		}
		r.contacts[pair[0]][pair[1]] = true
	}
	return nil
}

func (r *fakeUserRepo) AreContacts(_ context.Context, userID, contactID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.contacts[userID][contactID], nil
}

func (r *fakeUserRepo) ListContacts(_ context.Context, userID string) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.User
	for contactID := range r.contacts[userID] {
		if user, ok := r.users[contactID]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

type readKey struct {
	messageID int64
	userID    string
}

// fakeMessageRepo is an in-memory IMessageRepository mirroring the SQL
// semantics of the real one: visibility and read rows filter per viewer.
type fakeMessageRepo struct {
	mu        sync.Mutex
	messages  []*model.Message
	reads     map[readKey]bool
	hidden    map[readKey]bool
	createErr error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		reads:  map[readKey]bool{},
		hidden: map[readKey]bool{},
	}
}

func (r *fakeMessageRepo) Create(_ context.Context, message *model.Message) error {
	if err := message.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	r.messages = append(r.messages, message)
	return nil
}

func (r *fakeMessageRepo) FindByID(_ context.Context, id int64) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeMessageRepo) visible(m *model.Message, viewerID string) bool {
	return !r.hidden[readKey{m.ID, viewerID}]
}

func (r *fakeMessageRepo) inConversation(m *model.Message, viewerID, partnerID, conversationType string) bool {
	if conversationType == model.ConversationGroup {
		return m.GroupID == partnerID
	}
	return m.GroupID == "" &&
		((m.SenderID == viewerID && m.ReceiverID == partnerID) ||
			(m.SenderID == partnerID && m.ReceiverID == viewerID))
}

func (r *fakeMessageRepo) FindPrivate(_ context.Context, viewerID, partnerID string, beforeID int64, limit int) ([]*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Message
	for _, m := range r.messages {
		if !r.inConversation(m, viewerID, partnerID, model.ConversationPrivate) || !r.visible(m, viewerID) {
			continue
		}
		if beforeID > 0 && m.ID >= beforeID {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeMessageRepo) FindByGroup(_ context.Context, groupID, viewerID string, beforeID int64, limit int) ([]*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Message
	for _, m := range r.messages {
		if m.GroupID != groupID || !r.visible(m, viewerID) {
			continue
		}
		if beforeID > 0 && m.ID >= beforeID {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeMessageRepo) LastVisible(_ context.Context, viewerID, partnerID, conversationType string) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last *model.Message
	for _, m := range r.messages {
		if !r.inConversation(m, viewerID, partnerID, conversationType) || !r.visible(m, viewerID) {
			continue
		}
		if last == nil ||
			m.CreatedAt.After(last.CreatedAt) ||
			(m.CreatedAt.Equal(last.CreatedAt) && m.ID > last.ID) {
			last = m
		}
	}
	if last == nil {
		return nil, repository.ErrNotFound
	}
	return last, nil
}

func (r *fakeMessageRepo) unread(viewerID, partnerID, conversationType string) []*model.Message {
	var out []*model.Message
	for _, m := range r.messages {
		if !r.inConversation(m, viewerID, partnerID, conversationType) {
			continue
		}
		if m.SenderID == viewerID || !r.visible(m, viewerID) || r.reads[readKey{m.ID, viewerID}] {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeMessageRepo) UnreadCount(_ context.Context, viewerID, partnerID, conversationType string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.unread(viewerID, partnerID, conversationType))), nil
}

func (r *fakeMessageRepo) FindUnread(_ context.Context, viewerID, partnerID, conversationType string) ([]*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unread(viewerID, partnerID, conversationType), nil
}

func (r *fakeMessageRepo) HasReadStatus(_ context.Context, messageID int64, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads[readKey{messageID, userID}], nil
}

func (r *fakeMessageRepo) CreateReadStatus(_ context.Context, rs *model.MessageReadStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := readKey{rs.MessageID, rs.UserID}
	if r.reads[key] {
		return errors.New("duplicate read status")
	}
	r.reads[key] = true
	return nil
}

func (r *fakeMessageRepo) Hide(_ context.Context, messageID int64, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hidden[readKey{messageID, userID}] = true
	return nil
}

func (r *fakeMessageRepo) PrivatePartners(_ context.Context, viewerID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, m := range r.messages {
		if m.GroupID != "" {
			continue
		}
		var partner string
		switch viewerID {
		case m.SenderID:
			partner = m.ReceiverID
		case m.ReceiverID:
			partner = m.SenderID
		default:
			continue
		}
		if !seen[partner] {
			seen[partner] = true
			out = append(out, partner)
		}
	}
	return out, nil
}

// fakeFriendRepo is an in-memory IFriendRequestRepository.
type fakeFriendRepo struct {
	mu       sync.Mutex
	requests map[string]*model.FriendRequest
	order    []string
	clock    time.Time
}

func newFakeFriendRepo() *fakeFriendRepo {
	return &fakeFriendRepo{
		requests: map[string]*model.FriendRequest{},
		clock:    time.Now(),
	}
}

func (r *fakeFriendRepo) Create(_ context.Context, req *model.FriendRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = r.clock.Add(time.Millisecond)
	if req.CreatedAt.IsZero() {
		req.CreatedAt = r.clock
	}
	r.requests[req.ID] = req
	r.order = append(r.order, req.ID)
	return nil
}

func (r *fakeFriendRepo) FindByID(_ context.Context, id string) (*model.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return req, nil
}

func (r *fakeFriendRepo) PendingBetween(_ context.Context, a, b string) (*model.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		req := r.requests[id]
		if req.Status != model.FriendRequestPending {
			continue
		}
		if (req.SenderID == a && req.ReceiverID == b) || (req.SenderID == b && req.ReceiverID == a) {
			return req, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeFriendRepo) PendingFor(_ context.Context, receiverID string) ([]*model.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.FriendRequest
	for _, id := range r.order {
		req := r.requests[id]
		if req.ReceiverID == receiverID && req.Status == model.FriendRequestPending {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *fakeFriendRepo) Resolve(_ context.Context, id, status string) (*model.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if req.Resolved() {
		return nil, repository.ErrAlreadyResolved
	}
	req.Status = status
	return req, nil
}

// fakeGroupRepo is an in-memory IGroupRepository.
type fakeGroupRepo struct {
	mu        sync.Mutex
	groups    map[string]*model.Group
	members   map[string][]string
	memberErr error
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{
		groups:  map[string]*model.Group{},
		members: map[string][]string{},
	}
}

// addGroup seeds a group directly, bypassing the service layer.
func (r *fakeGroupRepo) addGroup(id, name, ownerID string, memberIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[id] = &model.Group{ID: id, Name: name, OwnerID: ownerID}
	r.members[id] = memberIDs
}

func (r *fakeGroupRepo) Create(_ context.Context, group *model.Group, memberIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[group.ID] = group
	r.members[group.ID] = memberIDs
	return nil
}

func (r *fakeGroupRepo) FindByID(_ context.Context, id string) (*model.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	group, ok := r.groups[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return group, nil
}

func (r *fakeGroupRepo) MemberIDs(_ context.Context, groupID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.memberErr != nil {
		return nil, r.memberErr
	}
	return r.members[groupID], nil
}

func (r *fakeGroupRepo) IsMember(_ context.Context, groupID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.members[groupID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeGroupRepo) GroupsFor(_ context.Context, userID string) ([]*model.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Group
	for id, members := range r.members {
		for _, m := range members {
			if m == userID {
				out = append(out, r.groups[id])
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func nopLogger() *zap.Logger { return zap.NewNop() }

package handler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tele "gopkg.in/telebot.v3"

	"chat-gamble-bot/internal/game/haunt"
	"chat-gamble-bot/internal/model"
	"chat-gamble-bot/internal/repository"
	"chat-gamble-bot/internal/service"
)

// fakeContext implements the tele.Context methods the handlers call.
type fakeContext struct {
	tele.Context
	sender  *tele.User
	chat    *tele.Chat
	args    []string
	replies []string
	sent    []string
}

func newContext(user *tele.User, chat *tele.Chat, args ...string) *fakeContext {
	return &fakeContext{sender: user, chat: chat, args: args}
}

func (c *fakeContext) Sender() *tele.User { return c.sender }
func (c *fakeContext) Chat() *tele.Chat   { return c.chat }
func (c *fakeContext) Args() []string     { return c.args }

func (c *fakeContext) Reply(what interface{}, _ ...interface{}) error {
	c.replies = append(c.replies, fmt.Sprint(what))
	return nil
}

func (c *fakeContext) Send(what interface{}, _ ...interface{}) error {
	c.sent = append(c.sent, fmt.Sprint(what))
	return nil
}

type sentMessage struct {
	to   string
	text string
}

// fakeSender records Bot.Send calls. Recipients in blocked fail.
type fakeSender struct {
	mu      sync.Mutex
	msgs    []sentMessage
	blocked map[string]bool
}

func (s *fakeSender) Send(to tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blocked[to.Recipient()] {
		return nil, errors.New("forbidden: bot can't initiate conversation with a user")
	}
	s.msgs = append(s.msgs, sentMessage{to: to.Recipient(), text: fmt.Sprint(what)})
	return &tele.Message{}, nil
}

func (s *fakeSender) to(recipient string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.msgs {
		if m.to == recipient {
			out = append(out, m.text)
		}
	}
	return out
}

type memoryUsers struct {
	mu    sync.Mutex
	users map[int64]*model.User
}

func (m *memoryUsers) get(id int64) (*model.User, bool) {
	u, ok := m.users[id]
	if !ok {
		return nil, false
	}
	cp := *u
	return &cp, true
}

func (m *memoryUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.get(id); ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *memoryUsers) GetOrCreate(_ context.Context, id int64, username string) (*model.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.get(id); ok {
		return u, false, nil
	}
	m.users[id] = &model.User{TelegramID: id, Username: username, Balance: repository.InitialBalance}
	u, _ := m.get(id)
	return u, true, nil
}

func (m *memoryUsers) adjust(id int64, amount int64, checked bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	if checked && u.Balance+amount < 0 {
		return nil, repository.ErrInsufficientFunds
	}
	u.Balance += amount
	cp, _ := m.get(id)
	return cp, nil
}

func (m *memoryUsers) UpdateBalance(_ context.Context, id int64, amount int64) (*model.User, error) {
	return m.adjust(id, amount, false)
}

func (m *memoryUsers) AdjustBalanceChecked(_ context.Context, id int64, amount int64) (*model.User, error) {
	return m.adjust(id, amount, true)
}

func (m *memoryUsers) UpdateDailyClaim(_ context.Context, id int64, claimTime int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u.LastDailyClaim = claimTime
	cp, _ := m.get(id)
	return cp, nil
}

func (m *memoryUsers) UpdateUsername(_ context.Context, id int64, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.Username = username
		return nil
	}
	return repository.ErrUserNotFound
}

type memoryTransactions struct {
	mu  sync.Mutex
	txs []model.Transaction
}

func (m *memoryTransactions) Create(_ context.Context, userID int64, amount int64, txType string, description *string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := model.Transaction{ID: int64(len(m.txs) + 1), UserID: userID, Amount: amount, Type: txType, Description: description}
	m.txs = append(m.txs, tx)
	return &tx, nil
}

func (m *memoryTransactions) SumByType(_ context.Context, userID int64, types []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, tx := range m.txs {
		for _, t := range types {
			if tx.UserID == userID && tx.Type == t {
				sum += tx.Amount
			}
		}
	}
	return sum, nil
}

func (m *memoryTransactions) GetByUserID(_ context.Context, userID int64, limit int) ([]*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Transaction
	for i := len(m.txs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.txs[i].UserID == userID {
			tx := m.txs[i]
			out = append(out, &tx)
		}
	}
	return out, nil
}

func newAccountService() (*service.AccountService, *memoryUsers) {
	users := &memoryUsers{users: make(map[int64]*model.User)}
	return service.NewAccountService(users, &memoryTransactions{}, 500, 24), users
}

type joinCall struct {
	player haunt.Player
	raw    string
}

type fakeRounds struct {
	mu     sync.Mutex
	joins  []joinCall
	status haunt.Status
}

func (f *fakeRounds) OnJoinCommand(_ context.Context, p haunt.Player, raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins = append(f.joins, joinCall{player: p, raw: raw})
}

func (f *fakeRounds) Status() haunt.Status { return f.status }

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chat-gamble-bot/internal/model"
	"chat-gamble-bot/internal/repository"
)

var ctx = context.Background()

type memoryUsers struct {
	mu    sync.Mutex
	users map[int64]*model.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[int64]*model.User)}
}

func (m *memoryUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) GetOrCreate(_ context.Context, id int64, username string) (*model.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, false, nil
	}
	u := &model.User{TelegramID: id, Username: username, Balance: repository.InitialBalance, CreatedAt: time.Now()}
	m.users[id] = u
	cp := *u
	return &cp, true, nil
}

func (m *memoryUsers) UpdateBalance(_ context.Context, id int64, amount int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u.Balance += amount
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) AdjustBalanceChecked(_ context.Context, id int64, amount int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	if u.Balance+amount < 0 {
		return nil, fmt.Errorf("%w: balance %d, change %d", repository.ErrInsufficientFunds, u.Balance, amount)
	}
	u.Balance += amount
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) UpdateDailyClaim(_ context.Context, id int64, claimTime int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u.LastDailyClaim = claimTime
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) UpdateUsername(_ context.Context, id int64, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Username = username
	return nil
}

type memoryTransactions struct {
	mu  sync.Mutex
	txs []model.Transaction
	err error
}

func (m *memoryTransactions) Create(_ context.Context, userID int64, amount int64, txType string, description *string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	tx := model.Transaction{
		ID:          int64(len(m.txs) + 1),
		UserID:      userID,
		Amount:      amount,
		Type:        txType,
		Description: description,
		CreatedAt:   time.Now(),
	}
	m.txs = append(m.txs, tx)
	return &tx, nil
}

func (m *memoryTransactions) SumByType(_ context.Context, userID int64, types []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, tx := range m.txs {
		if tx.UserID != userID {
			continue
		}
		for _, t := range types {
			if tx.Type == t {
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

func (m *memoryTransactions) ofType(txType string) []model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Transaction
	for _, tx := range m.txs {
		if tx.Type == txType {
			out = append(out, tx)
		}
	}
	return out
}

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-pay/internal/domain"
)

// MemStore is an in-memory Store with the locking and atomicity guarantees of SQLStore.
//
// Every account has its own lock, held by a unit of work from LockAndGet until ExecTx
// returns. Writes are buffered in the unit of work and become visible together on commit.
type MemStore struct {
	mu          sync.Mutex
	accounts    map[int64]*memAccount
	byNumber    map[string]int64
	journal     []domain.TransactionRecord
	txIDs       map[string]struct{}
	lastAccount int64
	lastRecord  int64
	lockTimeout time.Duration
	now         func() time.Time
}

type memAccount struct {
	lock    chan struct{}
	account domain.Account
}

// MemOption configures a MemStore.
type MemOption func(*MemStore)

// WithClock replaces the clock used for timestamps.
func WithClock(now func() time.Time) MemOption {
	return func(s *MemStore) {
		s.now = now
	}
}

// NewMemStore returns an empty MemStore. A non positive lockTimeout falls back to DefaultLockTimeout.
func NewMemStore(lockTimeout time.Duration, opts ...MemOption) *MemStore {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}

	s := &MemStore{
		accounts:    map[int64]*memAccount{},
		byNumber:    map[string]int64{},
		txIDs:       map[string]struct{}{},
		lockTimeout: lockTimeout,
		now:         time.Now,
	}

	for _, o := range opts {
		o(s)
	}

	return s
}

// ExecTx runs fn inside one unit of work.
func (s *MemStore) ExecTx(ctx context.Context, fn func(Querier) error) error {
	t := &memTx{
		s:        s,
		held:     map[int64]*memAccount{},
		balances: map[int64]decimal.Decimal{},
		deleted:  map[int64]bool{},
	}
	defer t.release()

	if err := fn(t); err != nil {
		return err
	}

	return t.commit(ctx)
}

func autocommit[T any](ctx context.Context, s *MemStore, fn func(q Querier) (T, error)) (T, error) {
	var res T

	err := s.ExecTx(ctx, func(q Querier) error {
		var err error
		res, err = fn(q)

		return err
	})

	return res, err
}

// Create runs memTx.Create in its own unit of work.
func (s *MemStore) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	return autocommit(ctx, s, func(q Querier) (domain.Account, error) { return q.Create(ctx, arg) })
}

// Get runs memTx.Get in its own unit of work.
func (s *MemStore) Get(ctx context.Context, id int64) (domain.Account, error) {
	return autocommit(ctx, s, func(q Querier) (domain.Account, error) { return q.Get(ctx, id) })
}

// GetByNumber runs memTx.GetByNumber in its own unit of work.
func (s *MemStore) GetByNumber(ctx context.Context, accountNumber string) (domain.Account, error) {
	return autocommit(ctx, s, func(q Querier) (domain.Account, error) { return q.GetByNumber(ctx, accountNumber) })
}

// LockAndGet runs memTx.LockAndGet in its own unit of work, so the lock is released on return.
func (s *MemStore) LockAndGet(ctx context.Context, id int64) (domain.Account, error) {
	return autocommit(ctx, s, func(q Querier) (domain.Account, error) { return q.LockAndGet(ctx, id) })
}

// ApplyDelta runs memTx.ApplyDelta in its own unit of work.
func (s *MemStore) ApplyDelta(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	return autocommit(ctx, s, func(q Querier) (decimal.Decimal, error) { return q.ApplyDelta(ctx, id, delta) })
}

// Exists runs memTx.Exists in its own unit of work.
func (s *MemStore) Exists(ctx context.Context, accountNumber string) (bool, error) {
	return autocommit(ctx, s, func(q Querier) (bool, error) { return q.Exists(ctx, accountNumber) })
}

// SoftDelete runs memTx.SoftDelete in its own unit of work.
func (s *MemStore) SoftDelete(ctx context.Context, id int64) error {
	return s.ExecTx(ctx, func(q Querier) error { return q.SoftDelete(ctx, id) })
}

// Append runs memTx.Append in its own unit of work.
func (s *MemStore) Append(ctx context.Context, rec domain.TransactionRecord) (domain.TransactionRecord, error) {
	return autocommit(ctx, s, func(q Querier) (domain.TransactionRecord, error) { return q.Append(ctx, rec) })
}

// Find runs memTx.Find in its own unit of work.
func (s *MemStore) Find(ctx context.Context, transactionID string) (domain.TransactionRecord, error) {
	return autocommit(ctx, s, func(q Querier) (domain.TransactionRecord, error) { return q.Find(ctx, transactionID) })
}

// Query runs memTx.Query in its own unit of work.
func (s *MemStore) Query(ctx context.Context, f domain.TransactionFilter, p domain.PageParams) (domain.TransactionPage, error) {
	return autocommit(ctx, s, func(q Querier) (domain.TransactionPage, error) { return q.Query(ctx, f, p) })
}

// memTx is one unit of work on a MemStore. It is used by a single goroutine.
type memTx struct {
	s        *MemStore
	held     map[int64]*memAccount
	created  []domain.Account
	balances map[int64]decimal.Decimal
	deleted  map[int64]bool
	records  []domain.TransactionRecord
}

// view returns the account as seen by this unit of work. s.mu must be held.
func (t *memTx) view(id int64) (domain.Account, bool) {
	var (
		a     domain.Account
		found bool
	)

	if ma, ok := t.s.accounts[id]; ok {
		a, found = ma.account, true
	}

	for _, c := range t.created {
		if c.ID == id {
			a, found = c, true
		}
	}

	if !found {
		return a, false
	}

	if b, ok := t.balances[id]; ok {
		a.Balance = b
	}

	if t.deleted[id] {
		a.Deleted = true
	}

	return a, !a.Deleted
}

func (t *memTx) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if t.numberTaken(arg.AccountNumber) {
		return domain.Account{}, domain.ErrDuplicateAccount
	}

	if arg.Balance.IsNegative() {
		return domain.Account{}, domain.ErrInvalidAmount
	}

	t.s.lastAccount++
	now := t.s.now()

	a := domain.Account{
		ID:            t.s.lastAccount,
		OwnerKind:     arg.OwnerKind,
		OwnerName:     arg.OwnerName,
		AccountNumber: arg.AccountNumber,
		Balance:       arg.Balance,
		Currency:      arg.Currency,
		AuditInfo: domain.AuditInfo{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	t.created = append(t.created, a)

	return a, nil
}

// numberTaken reports whether the number is committed or created in this unit of work. s.mu must be held.
func (t *memTx) numberTaken(number string) bool {
	if _, ok := t.s.byNumber[number]; ok {
		return true
	}

	for _, c := range t.created {
		if c.AccountNumber == number {
			return true
		}
	}

	return false
}

func (t *memTx) Get(ctx context.Context, id int64) (domain.Account, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	a, ok := t.view(id)
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return a, nil
}

func (t *memTx) GetByNumber(ctx context.Context, accountNumber string) (domain.Account, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	id, ok := t.s.byNumber[accountNumber]
	if !ok {
		for _, c := range t.created {
			if c.AccountNumber == accountNumber {
				id, ok = c.ID, true
			}
		}
	}

	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	a, ok := t.view(id)
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return a, nil
}

func (t *memTx) LockAndGet(ctx context.Context, id int64) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	t.s.mu.Lock()
	a, live := t.view(id)
	ma := t.s.accounts[id]
	_, held := t.held[id]
	t.s.mu.Unlock()

	if !live {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	// Accounts created by this unit of work are invisible to others.
	if held || ma == nil {
		return a, nil
	}

	timer := time.NewTimer(t.s.lockTimeout)
	defer timer.Stop()

	select {
	case ma.lock <- struct{}{}:
	case <-ctx.Done():
		l.Info().Err(ctx.Err()).Int64("account_id", id).Msg("lock wait canceled")
		return domain.Account{}, domain.ErrLockTimeout
	case <-timer.C:
		l.Info().Int64("account_id", id).Msg("lock wait timed out")
		return domain.Account{}, domain.ErrLockTimeout
	}

	t.held[id] = ma

	// The account may have changed or been deleted while waiting.
	t.s.mu.Lock()
	a, live = t.view(id)
	t.s.mu.Unlock()

	if !live {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return a, nil
}

func (t *memTx) ApplyDelta(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	a, err := t.LockAndGet(ctx, id)
	if err != nil {
		return decimal.Decimal{}, err
	}

	balance := a.Balance.Add(delta)
	if balance.IsNegative() {
		return decimal.Decimal{}, domain.ErrInsufficientBalance
	}

	t.s.mu.Lock()
	t.balances[id] = balance
	t.s.mu.Unlock()

	return balance, nil
}

func (t *memTx) Exists(ctx context.Context, accountNumber string) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	return t.numberTaken(accountNumber), nil
}

func (t *memTx) SoftDelete(ctx context.Context, id int64) error {
	if _, err := t.LockAndGet(ctx, id); err != nil {
		return err
	}

	t.s.mu.Lock()
	t.deleted[id] = true
	t.s.mu.Unlock()

	return nil
}

func (t *memTx) Append(ctx context.Context, rec domain.TransactionRecord) (domain.TransactionRecord, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if !rec.Amount.IsPositive() {
		return domain.TransactionRecord{}, domain.ErrInvalidAmount
	}

	if !t.known(rec.PayerID) || (rec.PayeeID != nil && !t.known(*rec.PayeeID)) {
		return domain.TransactionRecord{}, domain.ErrAccountNotFound
	}

	if t.txIDTaken(rec.TransactionID) {
		return domain.TransactionRecord{}, domain.ErrDuplicateTransaction
	}

	t.s.lastRecord++
	rec.ID = t.s.lastRecord
	rec.CreatedAt = t.s.now()

	t.records = append(t.records, rec)

	return rec, nil
}

// known reports whether the account exists, soft deleted or not. s.mu must be held.
func (t *memTx) known(id int64) bool {
	if _, ok := t.s.accounts[id]; ok {
		return true
	}

	for _, c := range t.created {
		if c.ID == id {
			return true
		}
	}

	return false
}

// txIDTaken reports whether the transaction id is committed or appended in this unit of work. s.mu must be held.
func (t *memTx) txIDTaken(id string) bool {
	if _, ok := t.s.txIDs[id]; ok {
		return true
	}

	for _, r := range t.records {
		if r.TransactionID == id {
			return true
		}
	}

	return false
}

func (t *memTx) Find(ctx context.Context, transactionID string) (domain.TransactionRecord, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for _, r := range t.allRecords() {
		if r.TransactionID == transactionID {
			return r, nil
		}
	}

	return domain.TransactionRecord{}, domain.ErrTransactionNotFound
}

// allRecords returns committed records followed by this unit of work's. s.mu must be held.
func (t *memTx) allRecords() []domain.TransactionRecord {
	all := make([]domain.TransactionRecord, 0, len(t.s.journal)+len(t.records))
	all = append(all, t.s.journal...)

	return append(all, t.records...)
}

func (t *memTx) Query(ctx context.Context, f domain.TransactionFilter, p domain.PageParams) (domain.TransactionPage, error) {
	t.s.mu.Lock()
	all := t.allRecords()
	t.s.mu.Unlock()

	matched := []domain.TransactionRecord{}

	for _, r := range all {
		if matches(r, f) {
			matched = append(matched, r)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}

		return matched[i].ID > matched[j].ID
	})

	page := domain.TransactionPage{
		Items:     []domain.TransactionRecord{},
		Total:     int64(len(matched)),
		PageIndex: p.PageIndex,
		PageSize:  p.PageSize,
	}

	if p.Offset() < 0 || p.Offset() >= int64(len(matched)) {
		return page, nil
	}

	from := int(p.Offset())

	to := len(matched)
	if p.Limit() < int64(to-from) {
		to = from + int(p.Limit())
	}

	page.Items = append(page.Items, matched[from:to]...)

	return page, nil
}

func matches(r domain.TransactionRecord, f domain.TransactionFilter) bool {
	involves := func(id int64) bool {
		return r.PayerID == id || (r.PayeeID != nil && *r.PayeeID == id)
	}

	switch {
	case f.ParticipantID != nil && f.CounterpartID != nil:
		p, c := *f.ParticipantID, *f.CounterpartID
		if r.PayeeID == nil {
			return false
		}

		if !(r.PayerID == p && *r.PayeeID == c) && !(*r.PayeeID == p && r.PayerID == c) {
			return false
		}
	case f.ParticipantID != nil:
		if !involves(*f.ParticipantID) {
			return false
		}
	case f.CounterpartID != nil:
		if !involves(*f.CounterpartID) {
			return false
		}
	}

	if f.DateRangeStart != nil && r.CreatedAt.Before(*f.DateRangeStart) {
		return false
	}

	if f.DateRangeEnd != nil && r.CreatedAt.After(*f.DateRangeEnd) {
		return false
	}

	return true
}

// commit publishes the buffered writes. Locks are still held by the caller.
func (t *memTx) commit(ctx context.Context) error {
	l := zerolog.Ctx(ctx)

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	// Unlocked creations and appends may race with another unit of work.
	for _, c := range t.created {
		if _, ok := t.s.byNumber[c.AccountNumber]; ok {
			l.Info().Str("account_number", c.AccountNumber).Msg("account number taken at commit")
			return domain.ErrDuplicateAccount
		}
	}

	for _, r := range t.records {
		if _, ok := t.s.txIDs[r.TransactionID]; ok {
			return domain.ErrDuplicateTransaction
		}
	}

	now := t.s.now()

	for _, c := range t.created {
		t.s.accounts[c.ID] = &memAccount{lock: make(chan struct{}, 1), account: c}
		t.s.byNumber[c.AccountNumber] = c.ID
	}

	for id, b := range t.balances {
		ma := t.s.accounts[id]
		ma.account.Balance = b
		ma.account.UpdatedAt = now
	}

	for id := range t.deleted {
		ma := t.s.accounts[id]
		ma.account.Deleted = true
		ma.account.UpdatedAt = now
	}

	for _, r := range t.records {
		t.s.journal = append(t.s.journal, r)
		t.s.txIDs[r.TransactionID] = struct{}{}
	}

	return nil
}

func (t *memTx) release() {
	for id, ma := range t.held {
		<-ma.lock
		delete(t.held, id)
	}
}

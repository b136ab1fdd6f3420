package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reseller-ledger/internal/core/domain"
	"reseller-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets[w.ID] = *w
	return nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *inMemoryWalletRepo) GetByStoreID(ctx context.Context, storeID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.StoreID == storeID {
			w := w
			return &w, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryWalletRepo) UpdateProjection(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.wallets[w.ID]; !ok {
		return fmt.Errorf("wallet not found")
	}
	r.wallets[w.ID] = *w
	return nil
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu      sync.RWMutex
	entries map[uuid.UUID][]domain.LedgerEntry // per wallet, append order
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{entries: make(map[uuid.UUID][]domain.LedgerEntry)}
}

func (r *inMemoryLedgerRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.WalletID] = append(r.entries[e.WalletID], *e)
	return nil
}

func (r *inMemoryLedgerRepo) LastEntry(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.entries[walletID]
	if len(list) == 0 {
		return nil, nil
	}
	e := list[len(list)-1]
	return &e, nil
}

func (r *inMemoryLedgerRepo) ExistsForOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, op domain.LedgerOperation) (bool, error) {
	e, err := r.GetByOrder(ctx, orderID, op)
	return e != nil, err
}

func (r *inMemoryLedgerRepo) GetByOrder(ctx context.Context, orderID uuid.UUID, op domain.LedgerOperation) (*domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, list := range r.entries {
		for _, e := range list {
			if e.RelatedOrderID != nil && *e.RelatedOrderID == orderID && e.Operation == op {
				e := e
				return &e, nil
			}
		}
	}
	return nil, nil
}

func (r *inMemoryLedgerRepo) List(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []domain.LedgerEntry
	for _, e := range r.entries[params.WalletID] {
		if params.Operation != nil && e.Operation != *params.Operation {
			continue
		}
		if params.From != nil && e.CreatedAt.Unix() < *params.From {
			continue
		}
		if params.To != nil && e.CreatedAt.Unix() > *params.To {
			continue
		}
		matched = append(matched, e)
	}

	total := int64(len(matched))
	start := (params.Page - 1) * params.PageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *inMemoryLedgerRepo) ListRecent(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.entries[walletID]
	var out []domain.LedgerEntry
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i])
	}
	return out, nil
}

// allEntries returns every entry for a wallet in append order.
func (r *inMemoryLedgerRepo) allEntries(walletID uuid.UUID) []domain.LedgerEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.LedgerEntry, len(r.entries[walletID]))
	copy(out, r.entries[walletID])
	return out
}

// --- In-Memory Order Repo ---

type inMemoryOrderRepo struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]domain.Order
}

func newInMemoryOrderRepo() *inMemoryOrderRepo {
	return &inMemoryOrderRepo{orders: make(map[uuid.UUID]domain.Order)}
}

func (r *inMemoryOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = *o
	return nil
}

func (r *inMemoryOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *inMemoryOrderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryOrderRepo) Update(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; !ok {
		return fmt.Errorf("order not found")
	}
	r.orders[o.ID] = *o
	return nil
}

func (r *inMemoryOrderRepo) ListStuck(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Order
	for _, o := range r.orders {
		if o.Status == domain.OrderStatusProcessing && o.UpdatedAt.Before(cutoff) {
			out = append(out, o)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *inMemoryOrderRepo) ListRecentByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Order
	for _, o := range r.orders {
		if o.WalletID == walletID && len(out) < limit {
			out = append(out, o)
		}
	}
	return out, nil
}

// --- In-Memory Withdrawal Repo ---

type inMemoryWithdrawalRepo struct {
	mu          sync.RWMutex
	withdrawals map[uuid.UUID]domain.Withdrawal
}

func newInMemoryWithdrawalRepo() *inMemoryWithdrawalRepo {
	return &inMemoryWithdrawalRepo{withdrawals: make(map[uuid.UUID]domain.Withdrawal)}
}

func (r *inMemoryWithdrawalRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Withdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.withdrawals[w.ID] = *w
	return nil
}

func (r *inMemoryWithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.withdrawals[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *inMemoryWithdrawalRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Withdrawal, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryWithdrawalRepo) MarkTerminal(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.WithdrawalStatus, providerRef *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.withdrawals[id]
	if !ok || w.Status != domain.WithdrawalStatusPending {
		return false, nil
	}
	w.Status = status
	if providerRef != nil {
		w.ProviderReference = providerRef
	}
	w.UpdatedAt = time.Now().UTC()
	r.withdrawals[id] = w
	return true, nil
}

func (r *inMemoryWithdrawalRepo) ListRecentByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.Withdrawal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Withdrawal
	for _, w := range r.withdrawals {
		if w.WalletID == walletID && len(out) < limit {
			out = append(out, w)
		}
	}
	return out, nil
}

// --- Serializing Transactor ---

// lockingTransactor holds one mutex from Begin until Commit or Rollback. It
// stands in for the database's row locks: every transaction is strictly
// serialized, so the concurrency tests exercise real interleavings of
// whole atomic units.
type lockingTransactor struct {
	mu sync.Mutex
}

func newLockingTransactor() *lockingTransactor {
	return &lockingTransactor{}
}

func (t *lockingTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &lockedTx{release: t.mu.Unlock}, nil
}

// lockedTx is a pgx.Tx that releases the transactor's mutex exactly once on
// Commit or Rollback.
type lockedTx struct {
	once    sync.Once
	release func()
}

func (t *lockedTx) done() {
	t.once.Do(t.release)
}

func (t *lockedTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *lockedTx) Commit(ctx context.Context) error          { t.done(); return nil }
func (t *lockedTx) Rollback(ctx context.Context) error        { t.done(); return nil }
func (t *lockedTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *lockedTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *lockedTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *lockedTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *lockedTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *lockedTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *lockedTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *lockedTx) Conn() *pgx.Conn { return nil }

// --- Fake Fulfillment Provider ---

// fakeProvider returns scripted answers per provider reference and counts
// queries.
type fakeProvider struct {
	mu       sync.Mutex
	statuses map[string]*ports.DeliveryStatus
	errs     map[string]error
	calls    map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		statuses: make(map[string]*ports.DeliveryStatus),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (p *fakeProvider) setStatus(ref string, status *ports.DeliveryStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses[ref] = status
	delete(p.errs, ref)
}

func (p *fakeProvider) setError(ref string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[ref] = err
}

func (p *fakeProvider) callCount(ref string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[ref]
}

func (p *fakeProvider) QueryDeliveryStatus(ctx context.Context, providerReference string) (*ports.DeliveryStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[providerReference]++
	if err, ok := p.errs[providerReference]; ok {
		return nil, err
	}
	if status, ok := p.statuses[providerReference]; ok {
		return status, nil
	}
	return &ports.DeliveryStatus{State: ports.DeliveryInFlight, Raw: `{"status":"PROCESSING"}`}, nil
}

// --- In-Memory Idempotency Cache ---

type inMemoryCache struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func newInMemoryCache() *inMemoryCache {
	return &inMemoryCache{values: make(map[string][]byte)}
}

func (c *inMemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (c *inMemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"payledger/internal/model"
	"payledger/internal/repository"
)

// memDB is shared in-memory state behind the repository fakes. It backs the
// transactional ledger scenarios where testify mocks would have to replay
// state by hand.
type memDB struct {
	mu       sync.Mutex
	users    map[uuid.UUID]model.User
	payments map[uuid.UUID]model.Payment
	clock    time.Time

	lockMu sync.Mutex
	locks  map[uuid.UUID]*sync.Mutex
}

func newMemDB() *memDB {
	return &memDB{
		users:    make(map[uuid.UUID]model.User),
		payments: make(map[uuid.UUID]model.Payment),
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

// rowLock returns the per-row mutex standing in for a FOR UPDATE lock.
func (db *memDB) rowLock(id uuid.UUID) *sync.Mutex {
	db.lockMu.Lock()
	defer db.lockMu.Unlock()
	l, ok := db.locks[id]
	if !ok {
		l = &sync.Mutex{}
		db.locks[id] = l
	}
	return l
}

// memTx tracks row locks taken during one transaction; they are held until
// the transaction returns, like their database counterparts.
type memTx struct {
	held []*sync.Mutex
}

func (tx *memTx) release() {
	for i := len(tx.held) - 1; i >= 0; i-- {
		tx.held[i].Unlock()
	}
}

// tick returns a strictly increasing timestamp so createdAt ordering is
// deterministic.
func (db *memDB) tick() time.Time {
	db.clock = db.clock.Add(time.Second)
	return db.clock
}

func (db *memDB) userRepo() repository.UserRepository       { return &memUserRepo{db: db} }
func (db *memDB) paymentRepo() repository.PaymentRepository { return &memPaymentRepo{db: db} }

// addUser installs a fixture row and returns its id.
func (db *memDB) addUser(u model.User) uuid.UUID {
	db.mu.Lock()
	defer db.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = db.tick()
	db.users[u.ID] = u
	return u.ID
}

// addPayment installs a fixture row and returns its id.
func (db *memDB) addPayment(p model.Payment) uuid.UUID {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = db.tick()
	db.payments[p.ID] = p
	return p.ID
}

func (db *memDB) paymentsOf(clientID uuid.UUID) []model.Payment {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []model.Payment
	for _, p := range db.payments {
		if p.ClientID == clientID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

type memUserRepo struct {
	db *memDB
	tx *memTx
}

var _ repository.UserRepository = (*memUserRepo)(nil)

func (r *memUserRepo) Create(ctx context.Context, user *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Username == user.Username || (u.Code == user.Code && u.Role == user.Role) {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = r.db.tick()
	r.db.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) Update(ctx context.Context, user *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	for _, u := range r.db.users {
		if u.ID == user.ID {
			continue
		}
		if u.Username == user.Username || (u.Code == user.Code && u.Role == user.Role) {
			return gorm.ErrDuplicatedKey
		}
	}
	r.db.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.users, id)
	return nil
}

func (r *memUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *memUserRepo) FindByIDWithPayments(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Payments = r.db.paymentsOf(id)
	return u, nil
}

func (r *memUserRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if r.tx != nil {
		l := r.db.rowLock(id)
		l.Lock()
		r.tx.held = append(r.tx.held, l)
	}
	return r.FindByID(ctx, id)
}

func (r *memUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) ExistsByUsername(ctx context.Context, username string, excludeID uuid.UUID) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Username == username && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUserRepo) ExistsByCodeAndRole(ctx context.Context, code string, role model.Role, excludeID uuid.UUID) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Code == code && u.Role == role && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUserRepo) List(ctx context.Context, role *model.Role) ([]model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var users []model.User
	for _, u := range r.db.users {
		if role == nil || u.Role == *role {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (r *memUserRepo) UpdateTotalPaid(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.TotalPaid = total
	r.db.users[id] = u
	return nil
}

func (r *memUserRepo) WithTransaction(ctx context.Context, fn func(ctx context.Context, users repository.UserRepository, payments repository.PaymentRepository) error) error {
	tx := &memTx{}
	defer tx.release()
	return fn(ctx, &memUserRepo{db: r.db, tx: tx}, &memPaymentRepo{db: r.db})
}

type memPaymentRepo struct {
	db *memDB
}

var _ repository.PaymentRepository = (*memPaymentRepo)(nil)

func (r *memPaymentRepo) Create(ctx context.Context, payment *model.Payment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.payments {
		if p.ClientID == payment.ClientID && p.Category == payment.Category && p.Concept == payment.Concept {
			return gorm.ErrDuplicatedKey
		}
	}
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	payment.CreatedAt = r.db.tick()
	r.db.payments[payment.ID] = *payment
	return nil
}

func (r *memPaymentRepo) Update(ctx context.Context, payment *model.Payment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.payments[payment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	for _, p := range r.db.payments {
		if p.ID == payment.ID {
			continue
		}
		if p.ClientID == payment.ClientID && p.Category == payment.Category && p.Concept == payment.Concept {
			return gorm.ErrDuplicatedKey
		}
	}
	r.db.payments[payment.ID] = *payment
	return nil
}

func (r *memPaymentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.payments, id)
	return nil
}

func (r *memPaymentRepo) DeleteByClientID(ctx context.Context, clientID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, p := range r.db.payments {
		if p.ClientID == clientID {
			delete(r.db.payments, id)
		}
	}
	return nil
}

func (r *memPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *memPaymentRepo) FindByClientID(ctx context.Context, clientID uuid.UUID) ([]model.Payment, error) {
	return r.db.paymentsOf(clientID), nil
}

func (r *memPaymentRepo) List(ctx context.Context, clientID *uuid.UUID) ([]model.Payment, error) {
	if clientID != nil {
		return r.db.paymentsOf(*clientID), nil
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Payment
	for _, p := range r.db.payments {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memPaymentRepo) ExistsForItem(ctx context.Context, clientID uuid.UUID, category, concept string, excludeID uuid.UUID) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.payments {
		if p.ClientID == clientID && p.Category == category && p.Concept == concept && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

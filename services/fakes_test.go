package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"storefront/cache"
	"storefront/models"
	"storefront/repositories"
)

// fakeStore is an in-memory repositories.Store. Transactions run one at a time
// on a copy of the state that replaces the original only on success.
type fakeStore struct {
	mu     sync.Mutex
	state  *fakeState
	failOn map[string]error
}

type fakeState struct {
	products map[int64]models.Product
	lines    map[int64]models.CartLine
	orders   []models.Order
	payments []models.PaymentReference
	guests   map[string]models.Guest
	users    map[int64]models.User
	nextID   int64
	clock    time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		state: &fakeState{
			products: map[int64]models.Product{},
			lines:    map[int64]models.CartLine{},
			guests:   map[string]models.Guest{},
			users:    map[int64]models.User{},
			clock:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		},
		failOn: map[string]error{},
	}
}

func (s *fakeState) clone() *fakeState {
	c := *s
	c.products = make(map[int64]models.Product, len(s.products))
	for k, v := range s.products {
		c.products[k] = v
	}
	c.lines = make(map[int64]models.CartLine, len(s.lines))
	for k, v := range s.lines {
		c.lines[k] = v
	}
	c.guests = make(map[string]models.Guest, len(s.guests))
	for k, v := range s.guests {
		c.guests[k] = v
	}
	c.users = make(map[int64]models.User, len(s.users))
	for k, v := range s.users {
		c.users[k] = v
	}
	c.orders = append([]models.Order(nil), s.orders...)
	c.payments = append([]models.PaymentReference(nil), s.payments...)
	return &c
}

func (s *fakeState) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *fakeState) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(repositories.Repositories) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	working := f.state.clone()
	if err := fn(fakeRepos{store: f, tx: working}); err != nil {
		return err
	}
	f.state = working
	return nil
}

func (f *fakeStore) Products() repositories.ProductRepository { return fakeRepos{store: f}.Products() }
func (f *fakeStore) Carts() repositories.CartRepository       { return fakeRepos{store: f}.Carts() }
func (f *fakeStore) Orders() repositories.OrderRepository     { return fakeRepos{store: f}.Orders() }
func (f *fakeStore) Guests() repositories.GuestRepository     { return fakeRepos{store: f}.Guests() }
func (f *fakeStore) Users() repositories.UserRepository       { return fakeRepos{store: f}.Users() }
func (f *fakeStore) LockOwner(ctx context.Context, key string) error {
	return nil
}

// seed helpers write straight into the committed state.

func (f *fakeStore) addProduct(name, price string, stock int) models.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := models.Product{
		ID: f.state.id(), Name: name, Price: models.MustMoney(price),
		StockQuantity: stock, IsActive: true, CreatedAt: f.state.tick(),
	}
	f.state.products[p.ID] = p
	return p
}

func (f *fakeStore) addUser(email string) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := models.User{ID: f.state.id(), Email: email, Username: email, Role: models.RoleCustomer, CreatedAt: f.state.tick()}
	f.state.users[u.ID] = u
	return u
}

func (f *fakeStore) product(id int64) models.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.products[id]
}

func (f *fakeStore) mutateProduct(id int64, fn func(p *models.Product)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.state.products[id]
	fn(&p)
	f.state.products[id] = p
}

func (f *fakeStore) guestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.state.guests)
}

func (f *fakeStore) counts() (orders, payments, lines int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.state.orders), len(f.state.payments), len(f.state.lines)
}

type fakeRepos struct {
	store *fakeStore
	tx    *fakeState
}

func (r fakeRepos) begin() (*fakeState, func()) {
	if r.tx != nil {
		return r.tx, func() {}
	}
	r.store.mu.Lock()
	return r.store.state, r.store.mu.Unlock
}

func (r fakeRepos) fail(op string) error {
	return r.store.failOn[op]
}

func (r fakeRepos) Products() repositories.ProductRepository { return fakeProducts{r} }
func (r fakeRepos) Carts() repositories.CartRepository       { return fakeCarts{r} }
func (r fakeRepos) Orders() repositories.OrderRepository     { return fakeOrders{r} }
func (r fakeRepos) Guests() repositories.GuestRepository     { return fakeGuests{r} }
func (r fakeRepos) Users() repositories.UserRepository       { return fakeUsers{r} }
func (r fakeRepos) LockOwner(ctx context.Context, key string) error {
	return r.fail("lock")
}

type fakeProducts struct{ fakeRepos }

func (r fakeProducts) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, done := r.begin()
	defer done()
	p, ok := s.products[id]
	if !ok || !p.IsActive {
		return nil, repositories.ErrNotFound
	}
	return &p, nil
}

func (r fakeProducts) List(ctx context.Context, limit, offset int, includeInactive bool) ([]models.Product, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s, done := r.begin()
	defer done()
	if err := r.fail("products.list"); err != nil {
		return nil, 0, err
	}
	all := []models.Product{}
	for _, p := range s.products {
		if p.IsActive || includeInactive {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	if offset >= total {
		return []models.Product{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r fakeProducts) LockForUpdate(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	s, done := r.begin()
	defer done()
	out := map[int64]*models.Product{}
	for _, id := range ids {
		if p, ok := s.products[id]; ok && p.IsActive {
			cp := p
			out[id] = &cp
		}
	}
	return out, nil
}

func (r fakeProducts) Create(ctx context.Context, p *models.Product) error {
	s, done := r.begin()
	defer done()
	if err := r.fail("products.create"); err != nil {
		return err
	}
	p.ID = s.id()
	p.IsActive = true
	p.CreatedAt = s.tick()
	p.UpdatedAt = p.CreatedAt
	s.products[p.ID] = *p
	return nil
}

func (r fakeProducts) Update(ctx context.Context, p *models.Product) error {
	s, done := r.begin()
	defer done()
	cur, ok := s.products[p.ID]
	if !ok || !cur.IsActive {
		return repositories.ErrNotFound
	}
	cur.Name, cur.Description, cur.Price = p.Name, p.Description, p.Price
	cur.ImageURL, cur.CloudinaryPublicID = p.ImageURL, p.CloudinaryPublicID
	cur.UpdatedAt = s.tick()
	s.products[p.ID] = cur
	p.UpdatedAt = cur.UpdatedAt
	return nil
}

func (r fakeProducts) SetStock(ctx context.Context, id int64, quantity int) error {
	s, done := r.begin()
	defer done()
	cur, ok := s.products[id]
	if !ok || !cur.IsActive {
		return repositories.ErrNotFound
	}
	cur.StockQuantity = quantity
	s.products[id] = cur
	return nil
}

func (r fakeProducts) DecrementStock(ctx context.Context, id int64, quantity int) (int, error) {
	s, done := r.begin()
	defer done()
	if err := r.fail("products.decrement"); err != nil {
		return 0, err
	}
	cur, ok := s.products[id]
	if !ok || cur.StockQuantity < quantity {
		return 0, repositories.ErrStockConflict
	}
	cur.StockQuantity -= quantity
	s.products[id] = cur
	return cur.StockQuantity, nil
}

func (r fakeProducts) Deactivate(ctx context.Context, id int64) error {
	s, done := r.begin()
	defer done()
	cur, ok := s.products[id]
	if !ok || !cur.IsActive {
		return repositories.ErrNotFound
	}
	cur.IsActive = false
	s.products[id] = cur
	return nil
}

type fakeCarts struct{ fakeRepos }

func (r fakeCarts) FindByID(ctx context.Context, id int64) (*models.CartLine, error) {
	s, done := r.begin()
	defer done()
	l, ok := s.lines[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &l, nil
}

func (r fakeCarts) FindLine(ctx context.Context, owner models.Owner, productID int64) (*models.CartLine, error) {
	s, done := r.begin()
	defer done()
	for _, l := range s.lines {
		if owner.Owns(&l) && l.ProductID == productID {
			return &l, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r fakeCarts) ListByOwner(ctx context.Context, owner models.Owner) ([]models.CartLine, error) {
	s, done := r.begin()
	defer done()
	out := []models.CartLine{}
	for _, l := range s.lines {
		if owner.Owns(&l) {
			p := s.products[l.ProductID]
			l.Product = &models.CartProduct{Name: p.Name, Price: p.Price, ImageURL: p.ImageURL}
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeCarts) Insert(ctx context.Context, line *models.CartLine) error {
	if err := r.fail("carts.insert"); err != nil {
		return err
	}
	s, done := r.begin()
	defer done()
	for _, l := range s.lines {
		if l.ProductID == line.ProductID && ownerOf(line).Owns(&l) {
			return repositories.ErrConflict
		}
	}
	line.ID = s.id()
	line.CreatedAt = s.tick()
	line.UpdatedAt = line.CreatedAt
	s.lines[line.ID] = *line
	return nil
}

func (r fakeCarts) UpdateQuantity(ctx context.Context, id int64, quantity int) (*models.CartLine, error) {
	s, done := r.begin()
	defer done()
	l, ok := s.lines[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	l.Quantity = quantity
	l.UpdatedAt = s.tick()
	s.lines[id] = l
	return &l, nil
}

func (r fakeCarts) Delete(ctx context.Context, id int64) error {
	s, done := r.begin()
	defer done()
	if _, ok := s.lines[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.lines, id)
	return nil
}

func (r fakeCarts) DeleteByOwner(ctx context.Context, owner models.Owner) (int64, error) {
	s, done := r.begin()
	defer done()
	if err := r.fail("carts.clear"); err != nil {
		return 0, err
	}
	var n int64
	for id, l := range s.lines {
		if owner.Owns(&l) {
			delete(s.lines, id)
			n++
		}
	}
	return n, nil
}

func ownerOf(line *models.CartLine) models.Owner {
	return models.Owner{UserID: line.UserID, GuestID: line.GuestID}
}

type fakeOrders struct{ fakeRepos }

func (r fakeOrders) Create(ctx context.Context, o *models.Order) error {
	s, done := r.begin()
	defer done()
	if err := r.fail("orders.create"); err != nil {
		return err
	}
	o.ID = s.id()
	o.CreatedAt = s.tick()
	s.orders = append(s.orders, *o)
	return nil
}

func (r fakeOrders) CreatePayment(ctx context.Context, p *models.PaymentReference) error {
	s, done := r.begin()
	defer done()
	if err := r.fail("orders.payment"); err != nil {
		return err
	}
	for _, existing := range s.payments {
		if existing.OrderID == p.OrderID {
			return repositories.ErrConflict
		}
	}
	p.ID = s.id()
	p.CreatedAt = s.clock
	s.payments = append(s.payments, *p)
	return nil
}

func (r fakeOrders) summaries(s *fakeState, keep func(models.Order) bool) []models.OrderSummary {
	out := []models.OrderSummary{}
	for _, o := range s.orders {
		if !keep(o) {
			continue
		}
		sum := models.OrderSummary{
			OrderID: o.ID, UserID: o.UserID, ProductID: o.ProductID,
			ProductName: s.products[o.ProductID].Name, Quantity: o.Quantity,
			UnitPrice: o.UnitPrice, Amount: o.Amount, Status: o.Status, CreatedAt: o.CreatedAt,
		}
		for _, p := range s.payments {
			if p.OrderID == o.ID {
				sum.PaymentID = p.PaymentID
			}
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].OrderID > out[j].OrderID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r fakeOrders) ListByUser(ctx context.Context, userID int64) ([]models.OrderSummary, error) {
	s, done := r.begin()
	defer done()
	return r.summaries(s, func(o models.Order) bool { return o.UserID == userID }), nil
}

func (r fakeOrders) List(ctx context.Context, limit, offset int) ([]models.OrderSummary, int, error) {
	s, done := r.begin()
	defer done()
	all := r.summaries(s, func(models.Order) bool { return true })
	if offset >= len(all) {
		return []models.OrderSummary{}, len(all), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

type fakeGuests struct{ fakeRepos }

func (r fakeGuests) FindByToken(ctx context.Context, token string) (*models.Guest, error) {
	s, done := r.begin()
	defer done()
	g, ok := s.guests[token]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &g, nil
}

func (r fakeGuests) Create(ctx context.Context, token string) (*models.Guest, error) {
	s, done := r.begin()
	defer done()
	if g, ok := s.guests[token]; ok {
		return &g, nil
	}
	g := models.Guest{ID: s.id(), Token: token, CreatedAt: s.tick()}
	s.guests[token] = g
	return &g, nil
}

type fakeUsers struct{ fakeRepos }

func (r fakeUsers) Create(ctx context.Context, u *models.User) error {
	s, done := r.begin()
	defer done()
	for _, existing := range s.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return repositories.ErrConflict
		}
	}
	u.ID = s.id()
	u.CreatedAt = s.tick()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = *u
	return nil
}

func (r fakeUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s, done := r.begin()
	defer done()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r fakeUsers) FindByID(ctx context.Context, id int64) (*models.User, error) {
	s, done := r.begin()
	defer done()
	u, ok := s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (r fakeUsers) List(ctx context.Context, limit, offset int) ([]models.User, int, error) {
	s, done := r.begin()
	defer done()
	all := []models.User{}
	for _, u := range s.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if offset >= len(all) {
		return []models.User{}, len(all), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

// fakeNotifier records receipts and optionally fails.
type fakeNotifier struct {
	mu       sync.Mutex
	name     string
	err      error
	receipts []CheckoutReceipt
}

func (n *fakeNotifier) Name() string { return n.name }

func (n *fakeNotifier) NotifyCheckout(ctx context.Context, r CheckoutReceipt) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.receipts = append(n.receipts, r)
	return n.err
}

func (n *fakeNotifier) calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.receipts)
}

// fakeCache is a map-backed ProductCache.
type fakeCache struct {
	mu          sync.Mutex
	pages       map[[2]int]*models.ProductPage
	products    map[int64]*models.Product
	invalidated []int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{pages: map[[2]int]*models.ProductPage{}, products: map[int64]*models.Product{}}
}

func (c *fakeCache) GetPage(ctx context.Context, page, limit int) (*models.ProductPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pages[[2]int{page, limit}]; ok {
		return p, nil
	}
	return nil, cache.ErrCacheMiss
}

func (c *fakeCache) SetPage(ctx context.Context, page, limit int, p *models.ProductPage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[[2]int{page, limit}] = p
	return nil
}

func (c *fakeCache) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.products[id]; ok {
		return p, nil
	}
	return nil, cache.ErrCacheMiss
}

func (c *fakeCache) SetProduct(ctx context.Context, p *models.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
	return nil
}

func (c *fakeCache) cachedProduct(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.products[id]
	return ok
}

func (c *fakeCache) invalidations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.invalidated)
}

func (c *fakeCache) InvalidateProducts(ctx context.Context, ids ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, ids...)
	for _, id := range ids {
		delete(c.products, id)
	}
	c.pages = map[[2]int]*models.ProductPage{}
	return nil
}

// fakeImages records uploads and deletions.
type fakeImages struct {
	uploads   []string
	deleted   []string
	uploadErr error
}

func (i *fakeImages) Validate(filename string, size int64) error {
	if size > 1024 {
		return errors.New("file too large")
	}
	return nil
}

func (i *fakeImages) Upload(ctx context.Context, img models.ImageUpload) (string, string, error) {
	if i.uploadErr != nil {
		return "", "", i.uploadErr
	}
	if _, err := io.ReadAll(img.File); err != nil {
		return "", "", err
	}
	id := "products/" + img.Filename
	i.uploads = append(i.uploads, id)
	return "https://img.example.com/" + id, id, nil
}

func (i *fakeImages) Delete(ctx context.Context, publicID string) error {
	i.deleted = append(i.deleted, publicID)
	return nil
}

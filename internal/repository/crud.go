package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "cycletracker/internal/errors"
)

// Patch maps column names to new values for a partial update. Columns not in
// the map are left untouched; a nil value writes NULL.
type Patch map[string]any

// Scope narrows a query, e.g. by owner.
type Scope func(*gorm.DB) *gorm.DB

// Option configures a CRUD repository.
type Option func(*options)

type options struct {
	preloads []string
	order    string
}

// WithPreload eager-loads the named association on every read.
func WithPreload(association string) Option {
	return func(o *options) {
		o.preloads = append(o.preloads, association)
	}
}

// WithOrder sets the ordering used by list and paginate reads.
func WithOrder(order string) Option {
	return func(o *options) {
		o.order = order
	}
}

// CRUD provides create, read, update, delete and pagination for entity T keyed by K.
type CRUD[T any, K comparable] struct {
	db   *gorm.DB
	opts options
}

// NewCRUD builds a GORM-backed repository for T.
func NewCRUD[T any, K comparable](db *gorm.DB, opts ...Option) *CRUD[T, K] {
	r := &CRUD[T, K]{db: db}
	for _, opt := range opts {
		opt(&r.opts)
	}
	return r
}

// WithTx returns a copy bound to tx.
func (r *CRUD[T, K]) WithTx(tx *gorm.DB) *CRUD[T, K] {
	cp := *r
	cp.db = tx
	return &cp
}

// WithTransaction runs fn in a database transaction, committing when fn
// returns nil and rolling back otherwise.
func (r *CRUD[T, K]) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *CRUD[T, K]) read(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx)
	for _, p := range r.opts.preloads {
		q = q.Preload(p)
	}
	return q
}

func (r *CRUD[T, K]) ordered(q *gorm.DB) *gorm.DB {
	if r.opts.order != "" {
		return q.Order(r.opts.order)
	}
	return q
}

// Create inserts entity without its associations. Generated fields are
// written back into entity.
func (r *CRUD[T, K]) Create(ctx context.Context, entity *T) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(entity).Error; err != nil {
		return fmt.Errorf("create: %w", translate(err))
	}
	return nil
}

// CreateMany inserts entities in one statement. An empty slice is a no-op.
func (r *CRUD[T, K]) CreateMany(ctx context.Context, entities []T) error {
	if len(entities) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&entities).Error; err != nil {
		return fmt.Errorf("create many: %w", translate(err))
	}
	return nil
}

// Get returns the entity with id, or nil when it does not exist.
func (r *CRUD[T, K]) Get(ctx context.Context, id K) (*T, error) {
	var entity T
	err := r.read(ctx).Where("id = ?", id).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	return &entity, nil
}

// FindOne returns the first entity matching scope, or nil when none does.
func (r *CRUD[T, K]) FindOne(ctx context.Context, scope Scope) (*T, error) {
	var entity T
	err := r.read(ctx).Scopes(scope).Take(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find one: %w", err)
	}
	return &entity, nil
}

// FindAll returns every entity matching scope.
func (r *CRUD[T, K]) FindAll(ctx context.Context, scope Scope) ([]T, error) {
	var entities []T
	if err := r.read(ctx).Scopes(scope).Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("find all: %w", err)
	}
	return entities, nil
}

// GetMulti returns up to limit entities after skipping skip.
func (r *CRUD[T, K]) GetMulti(ctx context.Context, skip, limit int) ([]T, error) {
	var entities []T
	if err := r.ordered(r.read(ctx)).Offset(skip).Limit(limit).Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("get multi: %w", err)
	}
	return entities, nil
}

// Update applies patch to entity and returns a freshly loaded copy of the
// row. An empty patch only reloads.
func (r *CRUD[T, K]) Update(ctx context.Context, entity *T, patch Patch) (*T, error) {
	id, err := r.primaryKey(ctx, entity)
	if err != nil {
		return nil, err
	}
	if len(patch) > 0 {
		if err := r.db.WithContext(ctx).Model(entity).Omit(clause.Associations).Updates(map[string]any(patch)).Error; err != nil {
			return nil, fmt.Errorf("update: %w", translate(err))
		}
	}
	fresh, err := r.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload: %w", err)
	}
	if fresh == nil {
		return nil, fmt.Errorf("reload: %w", apperrors.ErrNotFound)
	}
	return fresh, nil
}

func (r *CRUD[T, K]) primaryKey(ctx context.Context, entity *T) (K, error) {
	var zero K
	stmt := &gorm.Statement{DB: r.db}
	if err := stmt.Parse(entity); err != nil {
		return zero, fmt.Errorf("parse schema: %w", err)
	}
	field := stmt.Schema.PrioritizedPrimaryField
	if field == nil {
		return zero, fmt.Errorf("%s has no primary key", stmt.Schema.Name)
	}
	value, isZero := field.ValueOf(ctx, reflect.ValueOf(entity).Elem())
	if isZero {
		return zero, fmt.Errorf("%s has no primary key value", stmt.Schema.Name)
	}
	id, ok := value.(K)
	if !ok {
		return zero, fmt.Errorf("%s primary key is %T", stmt.Schema.Name, value)
	}
	return id, nil
}

// Delete removes the entity with id and reports whether a row was removed.
func (r *CRUD[T, K]) Delete(ctx context.Context, id K) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return false, fmt.Errorf("delete: %w", translate(res.Error))
	}
	return res.RowsAffected > 0, nil
}

// DeleteWhere removes every entity matching scope and returns the count.
func (r *CRUD[T, K]) DeleteWhere(ctx context.Context, scope Scope) (int64, error) {
	res := r.db.WithContext(ctx).Scopes(scope).Delete(new(T))
	if res.Error != nil {
		return 0, fmt.Errorf("delete where: %w", translate(res.Error))
	}
	return res.RowsAffected, nil
}

// GetPaginated returns one page over all entities.
func (r *CRUD[T, K]) GetPaginated(ctx context.Context, p Pagination) (*Page[T], error) {
	return r.Paginate(ctx, nil, p)
}

// Paginate returns one page of the entities matching scope. A nil scope
// matches everything.
func (r *CRUD[T, K]) Paginate(ctx context.Context, scope Scope, p Pagination) (*Page[T], error) {
	p = p.Normalize()
	if scope == nil {
		scope = func(q *gorm.DB) *gorm.DB { return q }
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(new(T)).Scopes(scope).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	var items []T
	if err := r.ordered(r.read(ctx).Scopes(scope)).Offset(p.Offset()).Limit(p.Limit).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("paginate: %w", err)
	}
	return NewPage(items, total, p), nil
}

// translate folds driver constraint failures into ErrPersistenceConflict.
func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: %w", apperrors.ErrPersistenceConflict, err)
	}
	return err
}

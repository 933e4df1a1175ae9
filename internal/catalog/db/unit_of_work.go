package db

import (
	"context"
	"fmt"
	"time"

	e "github.com/gartstein/storemanagement/internal/catalog/errors"
	"github.com/gartstein/storemanagement/internal/catalog/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	companiesTable = "companies"
	storesTable    = "stores"
	productsTable  = "products"
)

type entityState int

const (
	stateUnchanged entityState = iota
	stateAdded
	stateModified
	stateDeleted
)

func (s entityState) String() string {
	switch s {
	case stateAdded:
		return "added"
	case stateModified:
		return "modified"
	case stateDeleted:
		return "deleted"
	default:
		return "unchanged"
	}
}

type entryKey struct {
	table string
	id    uuid.UUID
}

// entry is one tracked entity. capture snapshots the entity's current field
// values and returns a func that writes them back.
type entry struct {
	key     entryKey
	entity  models.Auditable
	state   entityState
	capture func() func()
	restore func()
}

// trackable is satisfied by pointers to the catalog entities.
type trackable[T any] interface {
	*T
	models.Auditable
}

// UnitOfWork is the transactional boundary of a single logical request.
// Repositories stage inserts, modifications and deletes here; nothing is
// written until Commit. A UnitOfWork is not safe for concurrent use.
type UnitOfWork struct {
	db      *gorm.DB
	now     func() time.Time
	logger  *zap.Logger
	entries map[entryKey]*entry
	order   []*entry
}

// Option configures a UnitOfWork.
type Option func(*UnitOfWork)

// WithClock overrides the source of audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(u *UnitOfWork) {
		u.now = now
	}
}

// NewUnitOfWork starts an empty unit of work over database.
func NewUnitOfWork(database *gorm.DB, logger *zap.Logger, opts ...Option) *UnitOfWork {
	u := &UnitOfWork{
		db:      database,
		now:     time.Now,
		logger:  logger.Named("unit_of_work"),
		entries: make(map[entryKey]*entry),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// HasChanges reports whether any insert, modification or delete is staged.
func (u *UnitOfWork) HasChanges() bool {
	for _, en := range u.order {
		if en.state != stateUnchanged {
			return true
		}
	}
	return false
}

// Commit stamps audit fields and flushes every staged change inside a single
// transaction, in the order the changes were staged. It returns the number
// of rows written. On failure nothing is written and the staged changes stay
// pending so the caller can Rollback.
func (u *UnitOfWork) Commit(ctx context.Context) (int64, error) {
	pending := make([]*entry, 0, len(u.order))
	for _, en := range u.order {
		if en.state != stateUnchanged {
			pending = append(pending, en)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	now := u.now().UTC()
	unstamp := make([]func(), 0, len(pending))
	for _, en := range pending {
		switch en.state {
		case stateAdded:
			unstamp = append(unstamp, en.capture())
			en.entity.EnsureID()
			en.entity.MarkCreated(now)
		case stateModified:
			unstamp = append(unstamp, en.capture())
			en.entity.MarkUpdated(now)
		}
	}

	var rows int64
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, en := range pending {
			n, err := flush(tx, en)
			if err != nil {
				return err
			}
			rows += n
		}
		return nil
	})
	if err != nil {
		for _, undo := range unstamp {
			undo()
		}
		err = translateError(err)
		u.logger.Warn("commit failed",
			zap.Error(err),
			zap.Int("staged", len(pending)),
		)
		return 0, err
	}

	kept := u.order[:0]
	for _, en := range u.order {
		if en.state == stateDeleted {
			delete(u.entries, en.key)
			continue
		}
		en.state = stateUnchanged
		en.restore = en.capture()
		kept = append(kept, en)
	}
	u.order = kept

	u.logger.Debug("commit succeeded",
		zap.Int("staged", len(pending)),
		zap.Int64("rows", rows),
	)
	return rows, nil
}

// Rollback returns the tracked session to its last loaded or committed
// state: pending inserts are discarded, modified entities get their previous
// values back and pending deletes are cancelled.
func (u *UnitOfWork) Rollback() {
	kept := u.order[:0]
	for _, en := range u.order {
		if en.state == stateAdded {
			delete(u.entries, en.key)
			continue
		}
		en.restore()
		en.state = stateUnchanged
		kept = append(kept, en)
	}
	u.order = kept
}

func flush(tx *gorm.DB, en *entry) (int64, error) {
	switch en.state {
	case stateAdded:
		res := tx.Omit(clause.Associations).Create(en.entity)
		return res.RowsAffected, res.Error
	case stateModified:
		res := tx.Model(en.entity).Select("*").Omit(clause.Associations).Updates(en.entity)
		if res.Error != nil {
			return 0, res.Error
		}
		if res.RowsAffected == 0 {
			return 0, fmt.Errorf("%w: %s %s", e.ErrNotFound, en.key.table, en.key.id)
		}
		return res.RowsAffected, nil
	case stateDeleted:
		res := tx.Delete(en.entity)
		if res.Error != nil {
			return 0, res.Error
		}
		if res.RowsAffected == 0 {
			return 0, fmt.Errorf("%w: %s %s", e.ErrNotFound, en.key.table, en.key.id)
		}
		return res.RowsAffected, nil
	default:
		return 0, nil
	}
}

// track registers entity with the unit of work in the given state and
// returns the instance the unit of work tracks for that key.
//
// A read (stateUnchanged) of an entity that is already tracked and unchanged
// refreshes the tracked instance with the loaded values; a read of an entity
// with pending changes returns the tracked instance as is, and a read of an
// entity staged for deletion returns nil. List reads are not tracked and see
// the database only.
func track[T any, P trackable[T]](u *UnitOfWork, table string, entity P, state entityState) P {
	entity.EnsureID()
	key := entryKey{table: table, id: entity.EntityID()}

	en, ok := u.entries[key]
	if !ok {
		en = &entry{key: key, entity: entity, state: state}
		en.capture = func() func() {
			snapshot := *entity
			return func() { *entity = snapshot }
		}
		en.restore = en.capture()
		u.entries[key] = en
		u.order = append(u.order, en)
		return entity
	}

	tracked := en.entity.(P)
	switch state {
	case stateUnchanged:
		if en.state == stateDeleted {
			return nil
		}
		if en.state == stateUnchanged && tracked != entity {
			*tracked = *entity
			en.restore = en.capture()
		}
		return tracked
	case stateAdded:
		if tracked != entity {
			*tracked = *entity
		}
		u.transition(en, stateAdded)
	case stateModified:
		if tracked != entity {
			*tracked = *entity
		}
		if en.state != stateAdded {
			u.transition(en, stateModified)
		}
	case stateDeleted:
		if en.state == stateAdded {
			delete(u.entries, key)
			u.remove(en)
			return tracked
		}
		u.transition(en, stateDeleted)
	}
	return tracked
}

// transition moves en to the end of the staging order so flushes follow the
// order in which changes were requested.
func (u *UnitOfWork) transition(en *entry, state entityState) {
	if en.state != state {
		u.remove(en)
		u.order = append(u.order, en)
	}
	en.state = state
}

func (u *UnitOfWork) remove(target *entry) {
	for i, en := range u.order {
		if en == target {
			u.order = append(u.order[:i], u.order[i+1:]...)
			return
		}
	}
}

// stateOf exposes the tracked state of an entity for tests.
func (u *UnitOfWork) stateOf(table string, id uuid.UUID) (entityState, bool) {
	en, ok := u.entries[entryKey{table: table, id: id}]
	if !ok {
		return stateUnchanged, false
	}
	return en.state, true
}

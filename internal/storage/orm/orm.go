// Package orm stores todos through gorm, mapped onto the same todos table as
// the postgres backend.
package orm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gin-gonic-todos/internal/todo"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

type record struct {
	ID        string    `gorm:"primaryKey;type:text"`
	Title     string    `gorm:"not null"`
	Completed bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:false"`
}

func (record) TableName() string {
	return "todos"
}

func (r record) todo() todo.Todo {
	return todo.Todo{
		ID:        r.ID,
		Title:     r.Title,
		Completed: r.Completed,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

// Open connects with the given dialect and migrates the todos table.
func Open(dialect, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch dialect {
	case DialectPostgres:
		dialector = postgres.Open(dsn)
	case DialectSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown orm dialect %q", dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return todo.Now()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", dialect, err)
		}
		// SQLite admits one writer at a time. A single connection queues
		// transactions instead of failing them with SQLITE_BUSY, and keeps
		// a :memory: database visible to every caller.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("migrate todos: %w", err)
	}
	return db, nil
}

type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

var _ todo.Repository = (*Repository)(nil)

func New(db *gorm.DB) *Repository {
	return &Repository{db: db, now: todo.Now}
}

func (r *Repository) GetAll(ctx context.Context) ([]todo.Todo, error) {
	var records []record
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("find todos: %w", err)
	}
	todos := make([]todo.Todo, 0, len(records))
	for _, rec := range records {
		todos = append(todos, rec.todo())
	}
	return todos, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (todo.Todo, bool, error) {
	var rec record
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return todo.Todo{}, false, nil
	}
	if err != nil {
		return todo.Todo{}, false, fmt.Errorf("find todo: %w", err)
	}
	return rec.todo(), true, nil
}

func (r *Repository) Create(ctx context.Context, title string) (todo.Todo, error) {
	fresh := todo.New(title, r.now())
	rec := record{
		ID:        fresh.ID,
		Title:     fresh.Title,
		Completed: false,
		CreatedAt: fresh.CreatedAt,
		UpdatedAt: fresh.UpdatedAt,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", rec.ID).Take(&rec).Error
	})
	if err != nil {
		return todo.Todo{}, fmt.Errorf("create todo: %w", err)
	}
	return rec.todo(), nil
}

// Update reads and writes inside one transaction so the returned record is
// the one that was stored.
func (r *Repository) Update(ctx context.Context, id string, patch todo.Patch) (todo.Todo, error) {
	var rec record
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Take(&rec).Error; err != nil {
			return err
		}

		changes := map[string]interface{}{
			"updated_at": todo.Touch(rec.UpdatedAt, r.now()),
		}
		if patch.Title != nil {
			changes["title"] = *patch.Title
		}
		if patch.Completed != nil {
			changes["completed"] = *patch.Completed
		}
		if err := tx.Model(&record{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Take(&rec).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return todo.Todo{}, todo.ErrNotFound
	}
	if err != nil {
		return todo.Todo{}, fmt.Errorf("update todo: %w", err)
	}
	return rec.todo(), nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&record{}).Error; err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Package postgres implements storage.Storage on PostgreSQL through the
// gorm ORM. Reads may be spread over replicas with dbresolver; reads
// that must observe a write just made are pinned to the primary.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenk/backoff"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
)

type studentRow struct {
	ID      int64          `gorm:"primaryKey;autoIncrement"`
	Name    string         `gorm:"size:255;not null"`
	Email   sql.NullString `gorm:"size:255"`
	Address string         `gorm:"size:255;not null"`
}

func (studentRow) TableName() string {
	return "students"
}

func (r *studentRow) fromModel(s types.Student) {
	r.ID = s.ID
	r.Name = s.Name
	r.Address = s.Address
	r.Email = sql.NullString{}
	if s.Email != nil {
		r.Email = sql.NullString{String: *s.Email, Valid: true}
	}
}

func (r studentRow) toModel() types.Student {
	s := types.Student{
		ID:      r.ID,
		Name:    r.Name,
		Address: r.Address,
	}
	if r.Email.Valid {
		email := r.Email.String
		s.Email = &email
	}
	return s
}

// Postgres is the gorm-backed store.
type Postgres struct {
	db *gorm.DB
}

// New connects to the primary (retrying with exponential backoff until
// ConnectTimeoutSec elapses), registers replicas, and makes sure the
// students table exists.
func New(cfg Config, log *slog.Logger) (*Postgres, error) {
	cfg = cfg.withDefaults()

	db, err := connectPrimary(cfg, log)
	if err != nil {
		return nil, err
	}

	if len(cfg.Replicas) > 0 {
		replicas := make([]gorm.Dialector, 0, len(cfg.Replicas))
		for _, cc := range cfg.Replicas {
			replicas = append(replicas, postgres.Open(cc.DSN()))
		}
		err := db.Use(
			dbresolver.Register(dbresolver.Config{Replicas: replicas}).
				SetMaxIdleConns(cfg.MaxIdleConns).
				SetMaxOpenConns(cfg.MaxOpenConns).
				SetConnMaxLifetime(cfg.connMaxLifetime()))
		if err != nil {
			return nil, errors.Wrap(err, "register replicas")
		}
	}

	if err := db.AutoMigrate(&studentRow{}); err != nil {
		return nil, errors.Wrap(err, "create students table")
	}

	return &Postgres{db: db}, nil
}

func connectPrimary(cfg Config, log *slog.Logger) (*gorm.DB, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = time.Duration(cfg.ConnectTimeoutSec) * time.Second

	var db *gorm.DB
	err := backoff.Retry(func() error {
		var err error
		db, err = gorm.Open(postgres.Open(cfg.primaryDSN()), &gorm.Config{
			Logger: newLogger(log, cfg.Log),
		})
		if err != nil {
			log.Warn("postgres not ready, retrying", slog.String("error", err.Error()))
			return err
		}

		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Ping()
	}, bo)
	if err != nil {
		return nil, errors.WithStack(fmt.Errorf("connect db failed: %w", err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.connMaxLifetime())

	return db, nil
}

// Close closes the primary pool.
func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return errors.WithStack(err)
	}
	return sqlDB.Close()
}

func (p *Postgres) CreateStudent(ctx context.Context, student types.Student) (types.Student, error) {
	var row studentRow
	row.fromModel(student)
	row.ID = 0

	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return types.Student{}, errors.WithStack(err)
	}
	return row.toModel(), nil
}

func (p *Postgres) GetStudentByID(ctx context.Context, id int64) (types.Student, error) {
	return p.first(p.db.WithContext(ctx), id)
}

func (p *Postgres) GetStudents(ctx context.Context) ([]types.Student, error) {
	return p.find(p.db.WithContext(ctx))
}

func (p *Postgres) GetStudentsByIDs(ctx context.Context, ids []int64) ([]types.Student, error) {
	if len(ids) == 0 {
		return make([]types.Student, 0), nil
	}
	return p.find(p.db.WithContext(ctx).Where("id IN ?", ids))
}

func (p *Postgres) GetStudentsByName(ctx context.Context, text string) ([]types.Student, error) {
	return p.find(p.db.WithContext(ctx).Scopes(containsFold("name", text)))
}

func (p *Postgres) GetStudentsByEmail(ctx context.Context, text string) ([]types.Student, error) {
	return p.find(p.db.WithContext(ctx).Scopes(containsFold("email", text)))
}

func (p *Postgres) GetStudentsByAddress(ctx context.Context, text string) ([]types.Student, error) {
	return p.find(p.db.WithContext(ctx).Scopes(containsFold("address", text)))
}

// UpdateStudent writes all three mutable columns, including empty and
// NULL values, then re-reads the row from the primary.
func (p *Postgres) UpdateStudent(ctx context.Context, student types.Student) (types.Student, error) {
	var row studentRow
	row.fromModel(student)

	tx := p.db.WithContext(ctx).
		Model(&studentRow{ID: student.ID}).
		Select("name", "email", "address").
		Updates(&row)
	if tx.Error != nil {
		return types.Student{}, errors.WithStack(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return types.Student{}, errors.WithStack(storage.ErrNotFound)
	}

	return p.first(p.db.WithContext(ctx).Clauses(dbresolver.Write), student.ID)
}

func (p *Postgres) DeleteStudentByID(ctx context.Context, id int64) error {
	if err := p.db.WithContext(ctx).Delete(&studentRow{}, id).Error; err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func (p *Postgres) DeleteStudentsByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx := p.db.WithContext(ctx).Where("id IN ?", ids).Delete(&studentRow{})
	if tx.Error != nil {
		return 0, errors.WithStack(tx.Error)
	}
	return tx.RowsAffected, nil
}

func (p *Postgres) first(tx *gorm.DB, id int64) (types.Student, error) {
	var row studentRow
	err := tx.First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.Student{}, errors.WithStack(storage.ErrNotFound)
	}
	if err != nil {
		return types.Student{}, errors.WithStack(err)
	}
	return row.toModel(), nil
}

func (p *Postgres) find(tx *gorm.DB) ([]types.Student, error) {
	var rows []studentRow
	if err := tx.Order("id").Find(&rows).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	students := make([]types.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.toModel())
	}
	return students, nil
}

// containsFold scopes a query to rows whose column contains text,
// ignoring case. column is always one of the fixed names above.
func containsFold(column, text string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where(fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, column), storage.ContainsPattern(text))
	}
}

package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

var (
	// ErrRecordNotFound is returned when no row matches.
	ErrRecordNotFound = errors.New("record not found")
	// ErrAmbiguousMatch is returned by GetUnique when more than one row matches.
	ErrAmbiguousMatch = errors.New("more than one record matches")
	// ErrUniquenessViolation is returned when a write breaks a unique constraint.
	ErrUniquenessViolation = errors.New("unique constraint violated")
	// ErrUnknownField is returned for field names the model does not declare.
	ErrUnknownField = errors.New("unknown field")
)

// Gateway is the generic record-store access path for one model type. Every
// call runs as a single statement on a session bound to the caller's context.
type Gateway[T any] struct {
	db     *gorm.DB
	schema *schema.Schema
	pk     string
}

// NewGateway parses T's schema once so field names can be checked up front.
func NewGateway[T any](db *gorm.DB) (*Gateway[T], error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(new(T)); err != nil {
		return nil, fmt.Errorf("failed to parse model schema: %w", err)
	}
	if stmt.Schema.PrioritizedPrimaryField == nil {
		return nil, fmt.Errorf("model %s has no primary key", stmt.Schema.Name)
	}
	return &Gateway[T]{
		db:     db,
		schema: stmt.Schema,
		pk:     stmt.Schema.PrioritizedPrimaryField.DBName,
	}, nil
}

func (g *Gateway[T]) session(ctx context.Context) *gorm.DB {
	return g.db.WithContext(ctx)
}

func (g *Gateway[T]) column(field string) (string, error) {
	f := g.schema.LookUpField(field)
	if f == nil || f.DBName == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return f.DBName, nil
}

func (g *Gateway[T]) eq(column string, value interface{}) clause.Expression {
	return clause.Eq{Column: clause.Column{Table: g.schema.Table, Name: column}, Value: value}
}

// Insert stores rec. The caller assigns the primary key.
func (g *Gateway[T]) Insert(ctx context.Context, rec *T) error {
	if err := g.session(ctx).Create(rec).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// GetByField returns every record whose field equals value.
func (g *Gateway[T]) GetByField(ctx context.Context, field string, value interface{}) ([]T, error) {
	col, err := g.column(field)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := g.session(ctx).Where(g.eq(col, value)).Find(&out).Error; err != nil {
		return nil, translateError(err)
	}
	return out, nil
}

// GetUnique returns the single record whose field equals value.
func (g *Gateway[T]) GetUnique(ctx context.Context, field string, value interface{}) (*T, error) {
	col, err := g.column(field)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := g.session(ctx).Where(g.eq(col, value)).Limit(2).Find(&out).Error; err != nil {
		return nil, translateError(err)
	}
	switch len(out) {
	case 0:
		return nil, ErrRecordNotFound
	case 1:
		return &out[0], nil
	default:
		return nil, fmt.Errorf("%w: %s=%v", ErrAmbiguousMatch, col, value)
	}
}

// Update applies fields to the record with primary key id and returns the
// stored result. An empty fields map only re-reads the record.
func (g *Gateway[T]) Update(ctx context.Context, id interface{}, fields map[string]interface{}) (*T, error) {
	if len(fields) > 0 {
		values := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			col, err := g.column(k)
			if err != nil {
				return nil, err
			}
			if col == g.pk {
				return nil, fmt.Errorf("%w: primary key %s is immutable", ErrUnknownField, col)
			}
			values[col] = v
		}

		res := g.session(ctx).Model(new(T)).Where(g.eq(g.pk, id)).Updates(values)
		if res.Error != nil {
			return nil, translateError(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, ErrRecordNotFound
		}
	}
	return g.GetUnique(ctx, g.pk, id)
}

// Delete removes the record with primary key id.
func (g *Gateway[T]) Delete(ctx context.Context, id interface{}) error {
	res := g.session(ctx).Where(g.eq(g.pk, id)).Delete(new(T))
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func translateError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrRecordNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrUniquenessViolation, err)
	}
	// Drivers without an error translator still report these in the message.
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") {
		return fmt.Errorf("%w: %v", ErrUniquenessViolation, err)
	}
	return err
}

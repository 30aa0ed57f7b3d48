package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	pkgerrors "github.com/pizzalemon/pos-backend/pkg/errors"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Bind returns a copy that runs on tx. A nil tx keeps the current handle.
func (b Base) Bind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// IsNotFound reports whether err is a missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// NotFound converts gorm.ErrRecordNotFound into a typed NOT_FOUND error and
// leaves everything else untouched.
func NotFound(err error, message string) error {
	if IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, message)
	}
	return err
}

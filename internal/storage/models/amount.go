// internal/storage/models/amount.go
package models

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"gorm.io/gorm/schema"
)

func init() {
	schema.RegisterSerializer("amount", AmountSerializer{})
}

// AmountSerializer хранит uint64 как десятичное число, чтобы значения выше
// MaxInt64 помещались в numeric(20,0) на Postgres. SQLite хранит целые
// точно только до MaxInt64; большие значения при чтении дают ошибку.
type AmountSerializer struct{}

// Scan implements schema.SerializerInterface.
func (AmountSerializer) Scan(ctx context.Context, field *schema.Field, dst reflect.Value, dbValue interface{}) error {
	var (
		n   uint64
		err error
	)
	switch v := dbValue.(type) {
	case nil:
	case int64:
		if v < 0 {
			return fmt.Errorf("%s: negative amount %d", field.Name, v)
		}
		n = uint64(v)
	case uint64:
		n = v
	case string:
		n, err = strconv.ParseUint(v, 10, 64)
	case []byte:
		n, err = strconv.ParseUint(string(v), 10, 64)
	case float64:
		// SQLite переводит числа вне int64 в REAL
		if v < 0 || v > math.MaxInt64 || v != math.Trunc(v) {
			return fmt.Errorf("%s: amount %v is not exact in this database", field.Name, v)
		}
		n = uint64(v)
	default:
		return fmt.Errorf("%s: unsupported amount type %T", field.Name, dbValue)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", field.Name, err)
	}
	return field.Set(ctx, dst, n)
}

// Value implements schema.SerializerValuerInterface.
func (AmountSerializer) Value(_ context.Context, field *schema.Field, _ reflect.Value, fieldValue interface{}) (interface{}, error) {
	v, ok := fieldValue.(uint64)
	if !ok {
		return nil, fmt.Errorf("%s: amount must be uint64, got %T", field.Name, fieldValue)
	}
	return strconv.FormatUint(v, 10), nil
}

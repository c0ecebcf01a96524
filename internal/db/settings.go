package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/uptrace/bun"
)

type Setting struct {
	bun.BaseModel `bun:"table:settings,alias:s"`
	ID            int64  `bun:"setting_id,pk,autoincrement"`
	Name          string `bun:"setting_name,notnull,unique"`
	Value         string `bun:"setting_value"`
}

// GetSetting returns the stored value of name. On a miss the default is
// stored and returned.
func (s *Store) GetSetting(ctx context.Context, name, defaultValue string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getSetting(ctx, s.db, name, defaultValue)
}

// UpdateSetting inserts or overwrites name.
func (s *Store) UpdateSetting(ctx context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putSetting(ctx, s.db, name, value)
}

func getSetting(ctx context.Context, idb bun.IDB, name, defaultValue string) (string, error) {
	var setting Setting
	err := idb.NewSelect().Model(&setting).Where("setting_name = ?", name).Limit(1).Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := putSetting(ctx, idb, name, defaultValue); err != nil {
			return "", err
		}
		return defaultValue, nil
	case err != nil:
		return "", fmt.Errorf("failed to read setting %s: %w", name, err)
	}
	return setting.Value, nil
}

func putSetting(ctx context.Context, idb bun.IDB, name, value string) error {
	_, err := idb.NewInsert().
		Model(&Setting{Name: name, Value: value}).
		On("CONFLICT (setting_name) DO UPDATE").
		Set("setting_value = EXCLUDED.setting_value").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", name, err)
	}
	return nil
}

// SettingsSequence is a persistent id counter kept in the settings table.
type SettingsSequence struct {
	store *Store
	name  string
}

// Sequence returns the counter stored under name. Counters start at 1.
func (s *Store) Sequence(name string) *SettingsSequence {
	return &SettingsSequence{store: s, name: name}
}

// Reserve hands out n consecutive ids and returns the first.
func (q *SettingsSequence) Reserve(ctx context.Context, n int) (int64, error) {
	q.store.mu.Lock()
	defer q.store.mu.Unlock()

	var first int64
	err := q.store.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		raw, err := getSetting(ctx, tx, q.name, "1")
		if err != nil {
			return err
		}
		first, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("corrupt sequence %s: %w", q.name, err)
		}
		return putSetting(ctx, tx, q.name, strconv.FormatInt(first+int64(n), 10))
	})
	if err != nil {
		return 0, err
	}
	return first, nil
}

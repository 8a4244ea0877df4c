// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package settingsdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cardinalhq/hierarkey/settings"
)

// Pool is the part of *pgxpool.Pool the store needs.
type Pool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Store provides all functions to execute db queries and transactions
type Store struct {
	*Queries
	connPool Pool
}

var _ settings.Backend = (*Store)(nil)

// NewStore creates a new Store
func NewStore(connPool Pool) *Store {
	return &Store{
		connPool: connPool,
		Queries:  New(connPool),
	}
}

func (store *Store) Close() {
	store.connPool.Close()
}

func (store *Store) execTx(ctx context.Context, fn func(*Store) error) (err error) {
	tx, err := store.connPool.Begin(ctx)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		rbCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if rbErr := tx.Rollback(rbCtx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			if err != nil {
				err = errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
			} else {
				err = fmt.Errorf("rollback failed: %w", rbErr)
			}
		}
	}()

	txStore := &Store{
		connPool: store.connPool,
		Queries:  store.WithTx(tx),
	}

	if err = fn(txStore); err != nil {
		return err
	}

	commitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = tx.Commit(commitCtx); err != nil {
		return err
	}
	committed = true
	return nil
}

// ListRecords returns the records of owner in storage order.
func (store *Store) ListRecords(ctx context.Context, owner settings.Owner) ([]settings.Record, error) {
	rows, err := store.ListSettings(ctx, ListSettingsParams{
		Collection: owner.Collection,
		ObjectID:   owner.ObjectID,
	})
	if err != nil {
		return nil, fmt.Errorf("list settings for %s: %w", owner, err)
	}
	recs := make([]settings.Record, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, settings.Record{ID: r.ID, Key: r.Key, Value: r.Value})
	}
	return recs, nil
}

// SaveRecord inserts new records and updates existing ones. A record that
// vanished since it was read is inserted again under a new id.
func (store *Store) SaveRecord(ctx context.Context, owner settings.Owner, rec *settings.Record) error {
	if rec.ID != 0 {
		n, err := store.UpdateSettingValue(ctx, UpdateSettingValueParams{
			Value:      rec.Value,
			ID:         rec.ID,
			Collection: owner.Collection,
		})
		if err != nil {
			return fmt.Errorf("update setting %q for %s: %w", rec.Key, owner, err)
		}
		if n > 0 {
			return nil
		}
	}
	id, err := store.InsertSetting(ctx, InsertSettingParams{
		Collection: owner.Collection,
		ObjectID:   owner.ObjectID,
		Key:        rec.Key,
		Value:      rec.Value,
	})
	if err != nil {
		return fmt.Errorf("insert setting %q for %s: %w", rec.Key, owner, err)
	}
	rec.ID = id
	return nil
}

func (store *Store) DeleteRecord(ctx context.Context, owner settings.Owner, rec settings.Record) error {
	if err := store.DeleteSetting(ctx, DeleteSettingParams{ID: rec.ID, Collection: owner.Collection}); err != nil {
		return fmt.Errorf("delete setting %q for %s: %w", rec.Key, owner, err)
	}
	return nil
}

func (store *Store) CountReferences(ctx context.Context, key, value string, exclude settings.Owner) (int64, error) {
	return store.CountSettingReferences(ctx, CountSettingReferencesParams{
		Key:               key,
		Value:             value,
		ExcludeCollection: exclude.Collection,
		ExcludeObjectID:   exclude.ObjectID,
	})
}

// CleanDuplicates removes repeated (object, key) records in collection,
// keeping the one stored last. It returns the number of rows deleted.
func (store *Store) CleanDuplicates(ctx context.Context, collection string) (int64, error) {
	var deleted int64
	err := store.execTx(ctx, func(s *Store) error {
		slots, err := s.ListDuplicateSettingSlots(ctx, collection)
		if err != nil {
			return fmt.Errorf("failed to list duplicate slots: %w", err)
		}

		var drop []int64
		for _, slot := range slots {
			ids, err := s.ListSettingIDsForSlot(ctx, ListSettingIDsForSlotParams{
				Collection: collection,
				ObjectID:   slot.ObjectID,
				Key:        slot.Key,
			})
			if err != nil {
				return fmt.Errorf("failed to list ids for key %q: %w", slot.Key, err)
			}
			if len(ids) > 1 {
				drop = append(drop, ids[:len(ids)-1]...)
			}
		}
		if len(drop) == 0 {
			return nil
		}

		deleted, err = s.DeleteSettingsByID(ctx, drop)
		if err != nil {
			return fmt.Errorf("failed to delete duplicates: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// Package ledger provides the durable, single-slot write-ahead record of an
// in-progress relocation. The record is persisted before any destructive
// filesystem action and re-persisted after each irreversible step, so a
// rollback can run even after a crash mid-operation.
package ledger

import (
	"encoding/json"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/relink/pkg/errors"
	"github.com/arthur-debert/relink/pkg/logging"
	"github.com/arthur-debert/relink/pkg/types"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
)

// recordFile is the slot file name under the state directory.
const recordFile = "rollback.json"

// StatusUpdate merges milestone flags into the persisted record. Nil
// fields are left unchanged.
type StatusUpdate struct {
	BackupCreated   *bool
	JunctionCreated *bool
}

// Ledger owns one durable record slot. At most one relocation attempt may
// hold the slot at a time; Acquire enforces that with a file lock.
type Ledger struct {
	mu     sync.Mutex
	store  Store
	lock   *flock.Flock
	record *types.RollbackRecord
	logger zerolog.Logger
}

// New creates a Ledger over the given store. lockPath names the lock file
// guarding the slot; empty disables locking (tests).
func New(store Store, lockPath string) *Ledger {
	l := &Ledger{
		store:  store,
		logger: logging.GetLogger("ledger"),
	}
	if lockPath != "" {
		l.lock = flock.New(lockPath)
	}
	return l
}

// NewDefault creates a Ledger at the per-installation state location,
// $XDG_STATE_HOME/relink/rollback.json.
func NewDefault(fs types.FS) (*Ledger, error) {
	slot, err := xdg.StateFile(filepath.Join("relink", recordFile))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrLedgerWrite, "cannot resolve ledger state path")
	}
	return New(NewFSStore(fs, slot), slot+".lock"), nil
}

// Acquire takes exclusive ownership of the slot for one relocation
// attempt. A second concurrent attempt, even for a different source/target
// pair, is rejected with ErrLedgerBusy.
func (l *Ledger) Acquire() error {
	if l.lock == nil {
		return nil
	}
	locked, err := l.lock.TryLock()
	if err != nil {
		return errors.Wrap(err, errors.ErrLedgerWrite, "cannot acquire ledger lock")
	}
	if !locked {
		return errors.New(errors.ErrLedgerBusy, "another relocation attempt is already in flight")
	}
	return nil
}

// Release gives up slot ownership.
func (l *Ledger) Release() {
	if l.lock == nil {
		return
	}
	if err := l.lock.Unlock(); err != nil {
		l.logger.Warn().Err(err).Msg("Failed to release ledger lock")
	}
}

// Snapshot persists the full record, overwriting any prior slot content.
func (l *Ledger) Snapshot(record *types.RollbackRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.write(record); err != nil {
		return err
	}
	l.record = record

	l.logger.Info().
		Str("source", record.Source).
		Str("target", record.Target).
		Msg("Rollback record snapshotted")
	return nil
}

// Update merges milestone flags into the persisted record without losing
// other fields, and re-persists it.
func (l *Ledger) Update(update StatusUpdate) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.record == nil {
		return errors.New(errors.ErrLedgerWrite, "no record to update")
	}

	if update.BackupCreated != nil {
		l.record.BackupCreated = *update.BackupCreated
	}
	if update.JunctionCreated != nil {
		l.record.JunctionCreated = *update.JunctionCreated
	}

	if err := l.write(l.record); err != nil {
		return err
	}

	l.logger.Debug().
		Bool("backup_created", l.record.BackupCreated).
		Bool("junction_created", l.record.JunctionCreated).
		Msg("Rollback record updated")
	return nil
}

// Load reads the persisted record if present. The in-memory copy is
// preferred; the durable slot is what allows rollback to proceed after a
// process restart.
func (l *Ledger) Load() (*types.RollbackRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.record != nil {
		return l.record, nil
	}

	data, ok, err := l.store.Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrLedgerRead, "cannot read ledger slot")
	}
	if !ok {
		return nil, nil
	}

	var record types.RollbackRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errors.Wrap(err, errors.ErrLedgerRead, "ledger slot is corrupt")
	}

	l.record = &record
	return l.record, nil
}

// Clear deletes the persisted record. Called only after a relocation
// commits or a rollback fully restores the original state.
func (l *Ledger) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.record = nil
	if err := l.store.Delete(); err != nil {
		return errors.Wrap(err, errors.ErrLedgerWrite, "cannot clear ledger slot")
	}

	l.logger.Info().Msg("Rollback record cleared")
	return nil
}

func (l *Ledger) write(record *types.RollbackRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrLedgerWrite, "cannot encode rollback record")
	}
	if err := l.store.Write(data); err != nil {
		return errors.Wrap(err, errors.ErrLedgerWrite, "cannot persist rollback record")
	}
	return nil
}

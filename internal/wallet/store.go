package wallet

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/trd-wallet/internal/storage"
)

// Snapshot location inside the storage backend.
const (
	StoreFolder = "txEngineFolder"
	StoreFile   = "walletLocalData.json"
)

// Store reads and writes the wallet snapshot. With a passphrase set, the
// snapshot is sealed at rest.
type Store struct {
	folder     *storage.Folder
	passphrase []byte
	params     EncryptionParams
}

// NewStore returns a snapshot store scoped to the engine folder of db.
func NewStore(db storage.DB, passphrase string, params EncryptionParams) *Store {
	s := &Store{
		folder: storage.NewFolder(db, StoreFolder),
		params: params,
	}
	if passphrase != "" {
		s.passphrase = []byte(passphrase)
	}
	return s
}

// Load returns the stored snapshot bytes. A missing snapshot returns
// storage.ErrNotFound.
func (s *Store) Load() ([]byte, error) {
	data, err := s.folder.Read(StoreFile)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if !IsSealed(data) {
		return data, nil
	}
	if s.passphrase == nil {
		return nil, ErrSealed
	}
	return Open(data, s.passphrase)
}

// Save overwrites the stored snapshot with data.
func (s *Store) Save(data []byte) error {
	if s.passphrase != nil {
		sealed, err := Seal(data, s.passphrase, s.params)
		if err != nil {
			return fmt.Errorf("seal snapshot: %w", err)
		}
		data = sealed
	}
	if err := s.folder.Write(StoreFile, data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

package session

import (
	"github.com/cockroachdb/errors"
	badger "github.com/dgraph-io/badger/v4"
)

// Store is the local state kept between runs: the member bearer credential
// and the last guest contact details used to pre-fill a booking form.
type Store struct {
	db *badger.DB
}

var (
	keyToken      = []byte("auth/token")
	keyGuestName  = []byte("guest/name")
	keyGuestPhone = []byte("guest/phone")
)

func OpenStore(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open state store at %s", dir)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Token() (string, error) {
	return s.get(keyToken)
}

func (s *Store) SetToken(token string) error {
	return s.set(keyToken, token)
}

func (s *Store) ClearToken() error {
	return s.delete(keyToken)
}

func (s *Store) GuestContact() (name, phone string, err error) {
	if name, err = s.get(keyGuestName); err != nil {
		return "", "", err
	}
	if phone, err = s.get(keyGuestPhone); err != nil {
		return "", "", err
	}
	return name, phone, nil
}

func (s *Store) SetGuestContact(name, phone string) error {
	if err := s.set(keyGuestName, name); err != nil {
		return err
	}
	return s.set(keyGuestPhone, phone)
}

func (s *Store) get(key []byte) (string, error) {
	var out string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = string(val)
			return nil
		})
	})
	return out, err
}

func (s *Store) set(key []byte, val string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, []byte(val))
	})
}

func (s *Store) delete(key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

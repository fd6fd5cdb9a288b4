package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/nacl/secretbox"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const recordSlot = "current"

var ErrInvalidKey = errors.New("session key must be 32 bytes hex encoded")

type sessionRecord struct {
	Slot      string `gorm:"primaryKey"`
	Blob      []byte
	UpdatedAt time.Time
}

type credentialRecord struct {
	Slot      string `gorm:"primaryKey"`
	UserName  string
	Sealed    []byte
	UpdatedAt time.Time
}

// SQLiteStore keeps the session blob and remember-me credentials in a local
// SQLite file. Passwords are sealed with secretbox; without a key only the
// user name is kept.
type SQLiteStore struct {
	db  *gorm.DB
	key *[32]byte
}

func OpenSQLiteStore(path, hexKey string) (*SQLiteStore, error) {
	key, err := parseKey(hexKey)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	if err := db.AutoMigrate(&sessionRecord{}, &credentialRecord{}); err != nil {
		return nil, fmt.Errorf("migrate session db: %w", err)
	}

	return &SQLiteStore{db: db, key: key}, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) LoadSession() (*Session, error) {
	var rec sessionRecord
	err := s.db.Where("slot = ?", recordSlot).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(rec.Blob, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *SQLiteStore) SaveSession(sess Session) error {
	blob, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.db.Save(&sessionRecord{Slot: recordSlot, Blob: blob}).Error
}

func (s *SQLiteStore) ClearSession() error {
	return s.db.Where("slot = ?", recordSlot).Delete(&sessionRecord{}).Error
}

func (s *SQLiteStore) LoadCredentials() (*Credentials, error) {
	var rec credentialRecord
	err := s.db.Where("slot = ?", recordSlot).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	creds := &Credentials{UserName: rec.UserName}
	if len(rec.Sealed) > 0 && s.key != nil {
		password, err := open(rec.Sealed, s.key)
		if err != nil {
			return nil, err
		}
		creds.Password = password
	}
	return creds, nil
}

func (s *SQLiteStore) SaveCredentials(c Credentials) error {
	rec := credentialRecord{Slot: recordSlot, UserName: c.UserName}
	if s.key != nil && c.Password != "" {
		sealed, err := seal(c.Password, s.key)
		if err != nil {
			return err
		}
		rec.Sealed = sealed
	}
	return s.db.Save(&rec).Error
}

func (s *SQLiteStore) ClearCredentials() error {
	return s.db.Where("slot = ?", recordSlot).Delete(&credentialRecord{}).Error
}

func parseKey(hexKey string) (*[32]byte, error) {
	hexKey = strings.TrimSpace(hexKey)
	if hexKey == "" {
		return nil, nil
	}
	raw, err := hex.DecodeString(hexKey)
	if err != nil || len(raw) != 32 {
		return nil, ErrInvalidKey
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}

func seal(plain string, key *[32]byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], []byte(plain), &nonce, key), nil
}

func open(sealed []byte, key *[32]byte) (string, error) {
	if len(sealed) < 24 {
		return "", errors.New("sealed credentials are truncated")
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plain, ok := secretbox.Open(nil, sealed[24:], &nonce, key)
	if !ok {
		return "", errors.New("sealed credentials cannot be opened with the configured key")
	}
	return string(plain), nil
}

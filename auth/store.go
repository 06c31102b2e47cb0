// Package auth is the credential store backing registration and login.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"golang.org/x/crypto/pbkdf2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	hashIterations = 120000
	hashKeyLen     = 32
	saltLen        = 16
)

var (
	ErrMissingCredentials = errors.New("username and password required")
	ErrUserExists         = errors.New("user already exists")
	ErrUnknownUser        = errors.New("user does not exist")
	ErrWrongPassword      = errors.New("wrong password")
)

// User is a registered account. Passwords are stored as salted
// PBKDF2-HMAC-SHA256 digests, never in the clear.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"unique;size:32;not null"`
	PasswordHash string `gorm:"not null"`
	Salt         string `gorm:"not null"`
	CreatedAt    time.Time
}

// Store persists user records in a sqlite database.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the database at path and migrates the
// user table.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Register creates a new account with a fresh random salt.
func (s *Store) Register(username, password string) error {
	if username == "" || password == "" {
		return ErrMissingCredentials
	}
	var existing User
	err := s.db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	user := User{
		Username:     username,
		PasswordHash: hashPassword(password, salt),
		Salt:         hex.EncodeToString(salt),
	}
	return s.db.Create(&user).Error
}

// Login verifies a username/password pair against the stored digest.
func (s *Store) Login(username, password string) error {
	if username == "" || password == "" {
		return ErrMissingCredentials
	}
	var user User
	err := s.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUnknownUser
	}
	if err != nil {
		return err
	}
	salt, err := hex.DecodeString(user.Salt)
	if err != nil {
		return err
	}
	digest := hashPassword(password, salt)
	if subtle.ConstantTimeCompare([]byte(digest), []byte(user.PasswordHash)) != 1 {
		return ErrWrongPassword
	}
	return nil
}

func hashPassword(password string, salt []byte) string {
	key := pbkdf2.Key([]byte(password), salt, hashIterations, hashKeyLen, sha256.New)
	return hex.EncodeToString(key)
}

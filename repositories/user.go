//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"chatline/errors"
)

type IUserRepository interface {
	CreateUser(email, hashedPassword string) (string, error)
	GetUserByEmail(email string) (User, error)
	GetUserByID(id string) (User, error)
	ListUsers() ([]User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// User is the domain-friendly representation of a user in the repository layer.
// Equivalent to DiskMessage for the account domain.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

// diskUser is the JSON document persisted in BadgerDB under "user:id:{uuid}".
// A second key "user:email:{email}" holds only the uuid and acts as the
// uniqueness index for registration.
type diskUser struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"passwordHash"`
	Roles        []string `json:"roles"`
	CreatedAt    int64    `json:"createdAt"`
}

// CreateUser persists a new account and returns the generated user ID.
// Both the document and the email index are written in the same transaction,
// so a duplicate registration can never half-succeed.
func (u UserRepository) CreateUser(email, hashedPassword string) (string, error) {
	newID := uuid.New().String()
	doc := diskUser{
		ID:           newID,
		Email:        email,
		PasswordHash: hashedPassword,
		Roles:        []string{"user"},
		CreatedAt:    time.Now().Unix(),
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		emailKey := []byte("user:email:" + email)
		if _, err = txn.Get(emailKey); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err = txn.Set(emailKey, []byte(newID)); err != nil {
			return err
		}
		return txn.Set([]byte("user:id:"+newID), data)
	})
	if err != nil {
		return "", err
	}

	return newID, nil
}

// GetUserByEmail resolves the email index, then loads the user document.
func (u UserRepository) GetUserByEmail(email string) (User, error) {
	var id string
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("user:email:" + email))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err != nil {
		return User{}, fmt.Errorf("%w: %s", errors.ErrNotFound, email)
	}

	return u.GetUserByID(id)
}

func (u UserRepository) GetUserByID(id string) (User, error) {
	var doc diskUser

	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("user:id:" + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if err != nil {
		return User{}, fmt.Errorf("%w: %s", errors.ErrNotFound, id)
	}

	return toUserStruct(doc), nil
}

// ListUsers returns every account, ordered by ID prefix scan.
func (u UserRepository) ListUsers() ([]User, error) {
	var users []User

	err := u.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("user:id:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var doc diskUser
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			})
			if err != nil {
				return err
			}
			users = append(users, toUserStruct(doc))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return users, nil
}

func toUserStruct(doc diskUser) User {
	return User{
		ID:           doc.ID,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Roles:        doc.Roles,
		CreatedAt:    time.Unix(doc.CreatedAt, 0).UTC(),
	}
}

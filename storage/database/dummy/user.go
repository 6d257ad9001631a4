package dummydb

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/trezcool/ead/core"
	"github.com/trezcool/ead/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers ...user.User) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := lo.SliceToMap(excludedUsers, func(u user.User) (string, bool) { return u.ID, true })
	for _, usr := range repo.db.table {
		if excluded[usr.ID] {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr.ID = uuid.NewString()
	usr.CreatedAt = usr.CreatedAt.Truncate(time.Microsecond) // postgres precision
	usr.UpdatedAt = usr.UpdatedAt.Truncate(time.Microsecond)
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	preds := userPredicates(filter)
	users := lo.Filter(repo.query(), func(u user.User, _ int) bool {
		return lo.EveryBy(preds, func(match func(user.User) bool) bool { return match(u) })
	})

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: false}}
	}
	sortBy(users, ordering, userFields)
	return users, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.table[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(_ context.Context, username string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if username == "" {
		return user.User{}, user.ErrNotFound
	}
	usr, ok := lo.Find(repo.query(), func(u user.User) bool { return u.Username == username || u.Email == username })
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, isActive *bool) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// only save set fields
	origUsr, ok := repo.db.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	updated := *origUsr
	if usr.Roles != nil {
		updated.Roles = usr.Roles
	}
	if usr.PasswordHash != nil {
		updated.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		updated.IsActive = *isActive
	}
	updated.Name = usr.Name
	updated.Username = usr.Username
	updated.Email = usr.Email
	updated.UpdatedAt = usr.UpdatedAt.Truncate(time.Microsecond)

	repo.db.table[usr.ID] = &updated
	return updated, nil
}

func (repo *userRepository) SetLastLogin(_ context.Context, id string, at time.Time) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr, ok := repo.db.table[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	updated := *usr
	updated.LastLogin = at.Truncate(time.Microsecond)
	repo.db.table[id] = &updated
	return updated, nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

// userPredicates turns filter into the conditions a listed user must all satisfy.
func userPredicates(filter *user.QueryFilter) []func(user.User) bool {
	if filter == nil {
		return nil
	}
	var preds []func(user.User) bool
	if search := strings.ToLower(filter.Search); search != "" {
		preds = append(preds, func(u user.User) bool {
			return lo.SomeBy([]string{u.Name, u.Username, u.Email}, func(v string) bool {
				return strings.Contains(strings.ToLower(v), search)
			})
		})
	}
	if len(filter.Roles) > 0 {
		preds = append(preds, func(u user.User) bool { return lo.ContainsBy(filter.Roles, u.RoleStartsWith) })
	}
	if isActive := filter.IsActive; isActive != nil {
		preds = append(preds, func(u user.User) bool { return u.IsActive == *isActive })
	}
	if from := filter.CreatedFrom.UTC(); !filter.CreatedFrom.IsZero() {
		preds = append(preds, func(u user.User) bool { return !u.CreatedAt.Before(from) })
	}
	if to := filter.CreatedTo.UTC(); !filter.CreatedTo.IsZero() {
		preds = append(preds, func(u user.User) bool { return !u.CreatedAt.After(to) })
	}
	return preds
}

var userFields = map[string]func(u user.User) interface{}{
	"name":       func(u user.User) interface{} { return strings.ToLower(u.Name) },
	"username":   func(u user.User) interface{} { return u.Username },
	"email":      func(u user.User) interface{} { return u.Email },
	"is_active":  func(u user.User) interface{} { return u.IsActive },
	"created_at": func(u user.User) interface{} { return u.CreatedAt },
	"updated_at": func(u user.User) interface{} { return u.UpdatedAt },
	"last_login": func(u user.User) interface{} { return u.LastLogin },
}

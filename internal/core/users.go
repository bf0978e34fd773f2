package core

import (
	"context"
	"strings"

	"labstock/pkg/domain"
)

// AddUser creates a directory user with initials derived from name.
func (s *Service) AddUser(ctx context.Context, name string, role domain.Role) (domain.User, domain.Result, error) {
	var created domain.User
	res, err := s.run(ctx, "add_user", domain.EntityUser, func(tx domain.Tx) (string, error) {
		if !role.Valid() {
			return "", domain.InvalidInputError{Field: "role", Reason: "must be Admin, Manager or Staff"}
		}
		name = strings.TrimSpace(name)
		var err error
		created, err = tx.CreateUser(domain.User{
			ID:       tx.NewID(),
			Name:     name,
			Role:     role,
			Initials: domain.Initials(name),
		})
		return created.ID, err
	})
	return created, res, err
}

// DeleteUser removes a user. The directory never becomes empty, and ledger
// entries keep the name they copied.
func (s *Service) DeleteUser(ctx context.Context, id string) (domain.Result, error) {
	res, err := s.run(ctx, "delete_user", domain.EntityUser, func(tx domain.Tx) (string, error) {
		return id, tx.DeleteUser(id)
	})
	if err != nil {
		return res, err
	}
	s.currentMu.Lock()
	if s.currentUserID == id {
		s.currentUserID = ""
	}
	s.currentMu.Unlock()
	return res, nil
}

// ListUsers returns the directory in insertion order.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := s.view(ctx, "list_users", func(v domain.TxView) error {
		out = v.ListUsers()
		return nil
	})
	return out, err
}

// SetCurrentUser selects the acting user for later transactions.
func (s *Service) SetCurrentUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := s.view(ctx, "set_current_user", func(v domain.TxView) error {
		found, ok := v.FindUser(id)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityUser, ID: id}
		}
		u = found
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	s.currentMu.Lock()
	s.currentUserID = u.ID
	s.currentMu.Unlock()
	return u, nil
}

// CurrentUser returns the acting user. It falls back to the first directory
// user when none was selected or the selection was deleted.
func (s *Service) CurrentUser(ctx context.Context) (domain.User, error) {
	var u domain.User
	err := s.view(ctx, "current_user", func(v domain.TxView) error {
		found, ok := s.resolveCurrentUser(v)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityUser, ID: "current"}
		}
		u = found
		return nil
	})
	return u, err
}

func (s *Service) resolveCurrentUser(v domain.TxView) (domain.User, bool) {
	s.currentMu.RLock()
	id := s.currentUserID
	s.currentMu.RUnlock()
	if id != "" {
		if u, ok := v.FindUser(id); ok {
			return u, true
		}
	}
	users := v.ListUsers()
	if len(users) == 0 {
		return domain.User{}, false
	}
	return users[0], true
}

// currentUserName reads the acting user without tracing; used for audit
// attribution and default transaction users.
func (s *Service) currentUserName() string {
	var name string
	_ = s.store.View(context.Background(), func(v domain.TxView) error {
		if u, ok := s.resolveCurrentUser(v); ok {
			name = u.Name
		}
		return nil
	})
	return name
}

package content

import (
	"mediahub/pkg/domain"
)

// GetAllUsers returns a copy of every account, admin included.
func (s *Store) GetAllUsers() []domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.User(nil), s.users...)
}

// GetUser looks up an account by id.
func (s *Store) GetUser(id string) (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return domain.User{}, false
}

// Login matches identifier against email or name. Only the admin is
// password-checked unless the store was opened with StrictLogin.
func (s *Store) Login(identifier, password string) (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if identifier == "" {
		return domain.User{}, false
	}
	for _, u := range s.users {
		if u.Email != identifier && u.Name != identifier {
			continue
		}
		if u.Role == domain.RoleAdmin || (s.strict && u.Password != "") {
			if u.Password != password {
				return domain.User{}, false
			}
		}
		return u, true
	}
	return domain.User{}, false
}

// Register appends a new account with a fresh id. Admin accounts cannot be registered.
func (s *Store) Register(user domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.Role == "" {
		user.Role = domain.RoleConsumer
	}
	if !user.Role.Valid() || user.Role == domain.RoleAdmin {
		return domain.User{}, ErrInvalidRole
	}
	for _, u := range s.users {
		if clashes(u, user.Name) || clashes(u, user.Email) {
			return domain.User{}, ErrDuplicateUser
		}
	}
	user.ID = s.newID()
	if user.AvatarURL == "" {
		user.AvatarURL = GenerateAvatar(user.Name)
	}
	s.users = append(s.users, user)
	s.persist()
	return user, nil
}

func clashes(u domain.User, identifier string) bool {
	return identifier != "" && (u.Email == identifier || u.Name == identifier)
}

// UpdateUser merges patch into the account. Role changes may not add or remove the admin.
func (s *Store) UpdateUser(id string, patch domain.UserPatch) (domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, u := range s.users {
		if u.ID != id {
			continue
		}
		next := patch.Apply(u)
		if !next.Role.Valid() || (next.Role == domain.RoleAdmin) != (u.Role == domain.RoleAdmin) {
			return domain.User{}, true, ErrInvalidRole
		}
		s.users[i] = next
		s.persist()
		return next, true, nil
	}
	return domain.User{}, false, nil
}

// DeleteUser removes id on behalf of actorID. Deleting yourself is refused.
func (s *Store) DeleteUser(actorID, id string) (bool, error) {
	if actorID == id {
		return false, ErrSelfDelete
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, u := range s.users {
		if u.ID == id {
			s.users = append(s.users[:i], s.users[i+1:]...)
			s.persist()
			return true, nil
		}
	}
	return false, nil
}

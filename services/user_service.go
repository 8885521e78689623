//go:generate go run go.uber.org/mock/mockgen -source=user_service.go -destination=../mocks/mock_user_service.go -package=mocks
package services

import (
	"sort"

	"github.com/samber/lo"

	"chatline/domain"
	"chatline/repositories"
)

type IUserService interface {
	ListOthers(requesterID string) ([]domain.User, error)
}

type UserService struct {
	userRepository repositories.IUserRepository
}

func NewUserService(repo repositories.IUserRepository) IUserService {
	return &UserService{userRepository: repo}
}

// ListOthers returns every account except the requester's own, sorted by
// email for a stable contact listing.
func (s *UserService) ListOthers(requesterID string) ([]domain.User, error) {
	users, err := s.userRepository.ListUsers()
	if err != nil {
		return nil, err
	}

	others := lo.FilterMap(users, func(u repositories.User, _ int) (domain.User, bool) {
		if u.ID == requesterID {
			return domain.User{}, false
		}
		return domain.User{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}, true
	})

	sort.Slice(others, func(i, j int) bool { return others[i].Email < others[j].Email })
	return others, nil
}

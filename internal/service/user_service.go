package service

import (
	"context"
	"fmt"
	"regexp"
	"unicode"

	"flight-fare-tracker/internal/model"
	"flight-fare-tracker/internal/ports"
	"flight-fare-tracker/internal/security"
	"flight-fare-tracker/internal/util"

	"github.com/google/uuid"
)

var emailRegexp = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type UserService struct {
	userRepository ports.UserRepository
}

func NewUserService(userRepository ports.UserRepository) *UserService {
	return &UserService{userRepository: userRepository}
}

// Register создаёт нового пользователя с ролью user.
func (s *UserService) Register(ctx context.Context, email, password string) (*model.User, error) {
	if !emailRegexp.MatchString(email) {
		return nil, fmt.Errorf("[UserService] некорректный email")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, util.LogError("[UserService] ошибка хэширования пароля", err)
	}

	user := &model.User{
		UUID:         uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		Roles:        []string{"user"},
	}

	createdUser, err := s.userRepository.CreateUser(ctx, user)
	if err != nil {
		return nil, util.LogError("[UserService] не удалось создать пользователя", err)
	}

	return createdUser, nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("[UserService] пароль должен быть не меньше 8 символов")
	}

	var hasUpper, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasDigit {
		return fmt.Errorf("[UserService] пароль должен содержать заглавную букву и цифру")
	}

	return nil
}

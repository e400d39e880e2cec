package service

import (
	"errors"

	"deptkb-go/internal/model"
	"deptkb-go/internal/repository"
	"deptkb-go/pkg/hash"
	"deptkb-go/pkg/token"
)

// ErrInvalidCredentials 表示邮箱或密码不正确。
var ErrInvalidCredentials = errors.New("邮箱或密码不正确")

// TokenPair 是一次登录颁发的令牌对。
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// UserService 定义了用户注册登录的接口。
type UserService interface {
	Register(username, email, password string) (*model.User, error)
	Login(email, password string) (*model.User, *TokenPair, error)
	Profile(id uint) (*model.User, error)
}

type userService struct {
	users repository.UserRepository
	jwt   *token.JWTManager
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(users repository.UserRepository, jwt *token.JWTManager) UserService {
	return &userService{users: users, jwt: jwt}
}

// Register 创建新用户，初始角色为 student，其余角色由管理员调整。
func (s *userService) Register(username, email, password string) (*model.User, error) {
	hashed, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username: username,
		Email:    email,
		Password: hashed,
		Role:     model.RoleStudent,
		Status:   1,
	}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) Login(email, password string) (*model.User, *TokenPair, error) {
	user, err := s.users.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !hash.CheckPassword(password, user.Password) {
		return nil, nil, ErrInvalidCredentials
	}

	accessToken, err := s.jwt.GenerateToken(user.ID, string(user.Role), user.Email)
	if err != nil {
		return nil, nil, err
	}
	refreshToken, err := s.jwt.GenerateRefreshToken(user.ID, string(user.Role), user.Email)
	if err != nil {
		return nil, nil, err
	}
	return user, &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *userService) Profile(id uint) (*model.User, error) {
	return s.users.FindByID(id)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"vidtube-go/internal/api/dto"
	"vidtube-go/internal/config"
	"vidtube-go/internal/model"
	"vidtube-go/internal/repository"
	"vidtube-go/pkg/logger"
	"vidtube-go/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound        = errors.New("用户不存在")
	ErrUserExists          = errors.New("用户名或邮箱已被注册")
	ErrInvalidCredentials  = errors.New("用户名或密码错误")
	ErrInvalidRefreshToken = errors.New("刷新令牌无效或已过期")
)

const refreshTokenKeyPrefix = "auth:refresh_token:"

type AuthService struct {
	userRepo *repository.UserRepository
	cache    *redis.Client
}

// NewAuthService 创建认证服务
func NewAuthService(userRepo *repository.UserRepository, cache *redis.Client) *AuthService {
	return &AuthService{userRepo: userRepo, cache: cache}
}

// Register 用户注册
func (s *AuthService) Register(req *dto.RegisterRequest) (*dto.UserInfo, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.userRepo.ExistsByUsernameOrEmail(username, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		UserName:   username,
		Email:      email,
		FullName:   strings.TrimSpace(req.FullName),
		Password:   hashed,
		Avatar:     req.Avatar,
		CoverImage: req.CoverImage,
	}

	if err := s.userRepo.Create(user); err != nil {
		// 并发注册撞唯一约束
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	logger.Info("User registered", zap.Int64("user_id", user.ID), zap.String("username", username))

	return toUserInfo(user), nil
}

// Login 用户登录，签发访问令牌和刷新令牌
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.TokenData, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))

	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !utils.VerifyPassword(req.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(user)
}

// Refresh 用刷新令牌换取新的令牌对，旧刷新令牌作废
func (s *AuthService) Refresh(refreshToken string) (*dto.TokenData, error) {
	if s.cache == nil {
		return nil, ErrInvalidRefreshToken
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := refreshTokenKeyPrefix + refreshToken
	val, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	// 刷新令牌一次性使用
	if err := s.cache.Del(ctx, key).Err(); err != nil {
		logger.Warn("Delete used refresh token failed", zap.Error(err))
	}

	return s.issueTokens(user)
}

// Logout 作废刷新令牌
func (s *AuthService) Logout(refreshToken string) error {
	if s.cache == nil || refreshToken == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return s.cache.Del(ctx, refreshTokenKeyPrefix+refreshToken).Err()
}

// GetCurrentUser 获取当前登录用户信息
func (s *AuthService) GetCurrentUser(userID int64) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return toUserInfo(user), nil
}

func (s *AuthService) issueTokens(user *model.User) (*dto.TokenData, error) {
	jwtCfg := config.GetJWT()

	token, err := utils.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("签发访问令牌失败: %w", err)
	}

	refreshToken, err := utils.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("生成刷新令牌失败: %w", err)
	}

	if s.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		key := refreshTokenKeyPrefix + refreshToken
		if err := s.cache.Set(ctx, key, user.ID, jwtCfg.RefreshExpireDuration()).Err(); err != nil {
			return nil, fmt.Errorf("保存刷新令牌失败: %w", err)
		}
	}

	return &dto.TokenData{
		Token:        token,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(jwtCfg.ExpireDuration().Seconds()),
		User:         *toUserInfo(user),
	}, nil
}

func toUserInfo(user *model.User) *dto.UserInfo {
	return &dto.UserInfo{
		ID:         user.ID,
		Username:   user.UserName,
		Email:      user.Email,
		FullName:   user.FullName,
		Avatar:     user.Avatar,
		CoverImage: user.CoverImage,
	}
}

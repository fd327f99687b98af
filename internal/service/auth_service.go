package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"parkside/internal/db"
	"parkside/internal/entities"
	errs "parkside/internal/errors"
	"parkside/internal/repository"
)

const tokenTTL = 24 * time.Hour

type AuthService struct {
	Users  repository.UserRepository
	secret []byte
}

func NewAuthService(users repository.UserRepository, jwtSecret string) *AuthService {
	return &AuthService{Users: users, secret: []byte(jwtSecret)}
}

func (s *AuthService) Register(ctx context.Context, req entities.RegisterRequest) (*db.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" || req.FullName == "" {
		return nil, fmt.Errorf("%w: full name, email and password are required", errs.ErrInvalidInput)
	}
	if len(req.Password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", errs.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &db.User{
		FullName:     req.FullName,
		Email:        email,
		PasswordHash: string(hash),
		Phone:        req.Phone,
	}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("registering %s: %w", email, err)
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*entities.LoginResponse, error) {
	user, err := s.Users.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, errs.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, errs.ErrInvalidCredentials
	}

	claims := jwt.MapClaims{
		"sub":   user.ID,
		"admin": user.IsAdmin,
		"exp":   time.Now().Add(tokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}

	return &entities.LoginResponse{
		Token:    token,
		UserID:   user.ID,
		FullName: user.FullName,
		IsAdmin:  user.IsAdmin,
	}, nil
}

// Claims carried by a verified token.
type Claims struct {
	UserID  int
	IsAdmin bool
}

// VerifyToken parses and validates an HS256 token issued by Login.
func (s *AuthService) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errs.ErrInvalidCredentials
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errs.ErrInvalidCredentials
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return nil, errs.ErrInvalidCredentials
	}
	admin, _ := claims["admin"].(bool)

	return &Claims{UserID: int(sub), IsAdmin: admin}, nil
}

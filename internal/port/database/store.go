// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/sparkier-io/sparkier/internal/domain/request"
	"github.com/sparkier-io/sparkier/internal/domain/spark"
	"github.com/sparkier-io/sparkier/internal/domain/user"
)

// Store is the port interface for database operations.
type Store interface {
	// Sparks
	ListSparks(ctx context.Context) ([]spark.Spark, error)
	ListSparksByConsultant(ctx context.Context, consultantID string) ([]spark.Spark, error)
	GetSpark(ctx context.Context, id string) (*spark.Spark, error)
	GetSparkBySlug(ctx context.Context, slug string) (*spark.Spark, error)
	CreateSpark(ctx context.Context, s *spark.Spark) error
	UpdateSpark(ctx context.Context, s *spark.Spark) error
	DeleteSpark(ctx context.Context, id string) error

	// Client requests
	ListRequestsByClient(ctx context.Context, clientID string) ([]request.ClientRequest, error)
	ListRequestsByConsultant(ctx context.Context, consultantID string) ([]request.ClientRequest, error)
	GetRequest(ctx context.Context, id string) (*request.ClientRequest, error)
	CreateRequest(ctx context.Context, r *request.ClientRequest) error
	UpdateRequestStatus(ctx context.Context, id string, status request.Status) error

	// Users
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	UpdateUser(ctx context.Context, u *user.User) error
	DeleteUser(ctx context.Context, id string) error

	// Refresh tokens
	CreateRefreshToken(ctx context.Context, rt *user.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*user.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID string, newToken *user.RefreshToken) error
	DeleteRefreshToken(ctx context.Context, id string) error
	DeleteRefreshTokensByUser(ctx context.Context, userID string) error
	DeleteExpiredRefreshTokens(ctx context.Context) (int64, error)
}

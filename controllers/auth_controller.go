package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/phillip/club-events-go/config"
	"github.com/phillip/club-events-go/middleware"
	"github.com/phillip/club-events-go/models"
	"github.com/phillip/club-events-go/store"
)

type AdminStore interface {
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, a *models.Admin) error
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
}

type credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// ---------------- SETUP ----------------
// Setup creates the first admin account. It is closed once any admin exists.
func Setup(cfg *config.Config, admins AdminStore, log *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input credentials
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		n, err := admins.Count(ctx)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not check admins"})
			return
		}
		if n > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "setup already completed"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hash password"})
			return
		}

		admin := models.Admin{
			Email:        input.Email,
			PasswordHash: string(hash),
			CreatedAt:    time.Now().UTC(),
		}
		if err := admins.Create(ctx, &admin); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				c.JSON(http.StatusConflict, gin.H{"error": "setup already completed"})
				return
			}
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create admin"})
			return
		}

		log.Info().Str("admin_id", admin.ID).Msg("initial admin created")
		respondWithToken(c, cfg, &admin, http.StatusCreated)
	}
}

// ---------------- LOGIN ----------------
func Login(cfg *config.Config, admins AdminStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		admin, err := admins.GetByEmail(ctx, strings.TrimSpace(input.Email))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
				return
			}
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not sign in"})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(input.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}

		respondWithToken(c, cfg, admin, http.StatusOK)
	}
}

func respondWithToken(c *gin.Context, cfg *config.Config, admin *models.Admin, status int) {
	token, expiresAt, err := middleware.IssueToken(cfg, admin.ID, admin.Email, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(status, gin.H{"token": token, "expiresAt": expiresAt.UTC()})
}

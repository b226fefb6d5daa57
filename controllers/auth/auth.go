package authControllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/velmart/storefront-api/middleware"
	"github.com/velmart/storefront-api/models"
	"github.com/velmart/storefront-api/services"
)

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone"`
}

type VerifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

const tokenTTL = 24 * time.Hour

// Register creates an unverified account and mails a one-time code.
// POST /auth/register
func Register(db *gorm.DB, mailer *services.Mailer, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var existing models.User
		if err := db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
			return
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error("password hashing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		code, expiresAt, err := services.GenerateOTP()
		if err != nil {
			log.Error("otp generation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		user := models.User{
			ID:           uuid.NewString(),
			Email:        req.Email,
			PasswordHash: string(hash),
			Name:         req.Name,
			Phone:        req.Phone,
			OTPCode:      code,
			OTPExpiresAt: &expiresAt,
		}
		if err := db.Create(&user).Error; err != nil {
			log.Error("user creation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		if err := mailer.SendOTP(c.Request.Context(), user.Email, code); err != nil {
			log.Warn("otp mail delivery failed", zap.String("user_id", user.ID), zap.Error(err))
		}

		c.JSON(http.StatusCreated, gin.H{"message": "Account created. Check your email for the verification code."})
	}
}

// Verify confirms the one-time code and activates the account.
// POST /auth/verify
func Verify(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VerifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or code"})
			return
		}
		if !services.VerifyOTP(user.OTPCode, req.Code, user.OTPExpiresAt) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or code"})
			return
		}

		updates := map[string]interface{}{
			"verified":       true,
			"otp_code":       "",
			"otp_expires_at": nil,
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Account verified. You can now log in."})
	}
}

// Login checks credentials and issues a bearer token.
// POST /auth/login
func Login(db *gorm.DB, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		if !user.Verified {
			c.JSON(http.StatusForbidden, gin.H{"error": "Account not verified"})
			return
		}
		if !user.Active {
			c.JSON(http.StatusForbidden, gin.H{"error": "Account disabled"})
			return
		}

		token, err := middleware.IssueToken(user.ID, jwt.MapClaims{
			"exp": time.Now().Add(tokenTTL).Unix(),
			"iat": time.Now().Unix(),
		})
		if err != nil {
			log.Error("token signing failed", zap.String("user_id", user.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
	}
}

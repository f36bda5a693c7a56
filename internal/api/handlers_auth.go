package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"mailbeacon/internal/auth"
	"mailbeacon/internal/models"
)

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		respondError(w, http.StatusBadRequest, errors.New("valid email is required"))
		return
	}
	if req.Password == "" {
		respondError(w, http.StatusBadRequest, errors.New("password is required"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()
	orm := a.store.ORM.WithContext(ctx)

	// A PENDING account is one whose code was never confirmed, possibly
	// never delivered; re-registering refreshes it instead of rejecting,
	// so a failed send can always be retried.
	var existing models.User
	lookupErr := orm.Where("email = ?", req.Email).First(&existing).Error
	if lookupErr != nil && !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
		respondFailure(w, lookupErr)
		return
	}
	if lookupErr == nil && existing.State != models.UserStatePending {
		respondError(w, http.StatusBadRequest, errors.New("email already registered"))
		return
	}

	otp, err := auth.GenerateOTP()
	if err != nil {
		respondFailure(w, err)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondFailure(w, err)
		return
	}

	// The mail goes out before any row is written: a failed send must
	// leave no state behind, or the address would be locked out with a
	// code that never arrived.
	subject := "Email Verification for Email Tracker"
	body := fmt.Sprintf("Your verification code is: %s. Please enter this code to verify your email.", otp)
	if err := a.mail.Send(r.Context(), req.Email, subject, body); err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("send verification mail")
		respondError(w, http.StatusInternalServerError, errors.New("error during registration process"))
		return
	}

	expiry := time.Now().Add(a.config.OTPTTL)
	if lookupErr == nil {
		updates := map[string]any{
			"password_hash":  hash,
			"otp":            otp,
			"otp_expires_at": expiry,
		}
		if err := orm.Model(&existing).Updates(updates).Error; err != nil {
			respondFailure(w, err)
			return
		}
	} else {
		user := models.User{
			Email:        req.Email,
			PasswordHash: hash,
			State:        models.UserStatePending,
			Otp:          &otp,
			OtpExpiresAt: &expiry,
		}
		if err := orm.Create(&user).Error; err != nil {
			respondFailure(w, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Verification code sent to email",
		"email":   req.Email,
	})
}

func (a *API) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		OtpString string `json:"otpString"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.OtpString = strings.TrimSpace(req.OtpString)

	ctx, cancel := withTimeout(r.Context())
	defer cancel()
	orm := a.store.ORM.WithContext(ctx)

	var user models.User
	if err := orm.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusBadRequest, errors.New("user not found"))
			return
		}
		respondFailure(w, err)
		return
	}

	if user.Otp == nil || user.OtpExpiresAt == nil {
		respondError(w, http.StatusBadRequest, errors.New("no code found, please request a new one"))
		return
	}
	if time.Now().After(*user.OtpExpiresAt) {
		respondError(w, http.StatusBadRequest, errors.New("code has expired, please request a new one"))
		return
	}
	if req.OtpString != *user.Otp {
		respondError(w, http.StatusBadRequest, errors.New("invalid code"))
		return
	}

	// Clearing the code makes verification single-use: replaying the
	// same code after this point fails the nil check above.
	updates := map[string]any{
		"state":          models.UserStateActive,
		"otp":            nil,
		"otp_expires_at": nil,
	}
	if err := orm.Model(&user).Updates(updates).Error; err != nil {
		respondFailure(w, err)
		return
	}

	token, err := a.tokens.Issue(user.ID)
	if err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Email verified successfully",
		"token":   token,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	var user models.User
	if err := a.store.ORM.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusBadRequest, errors.New("invalid email or password"))
			return
		}
		respondFailure(w, err)
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		respondError(w, http.StatusBadRequest, errors.New("invalid email or password"))
		return
	}
	if user.State != models.UserStateActive {
		respondError(w, http.StatusBadRequest, errors.New("email not verified"))
		return
	}

	token, err := a.tokens.Issue(user.ID)
	if err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"token": token})
}

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"mailbeacon/internal/analytics"
	"mailbeacon/internal/models"
	"mailbeacon/internal/notify"
	"mailbeacon/internal/track"
)

// maskedIP replaces viewer and creator addresses in API responses. The
// raw addresses stay server-side for attribution and analytics only.
const maskedIP = "**hidden**"

const recentViewsPerPixel = 5

func (a *API) handleCreatePixel(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	var req struct {
		RecipientEmail string `json:"recipientEmail"`
		EmailSubject   string `json:"emailSubject"`
		CategoryID     string `json:"categoryId"`
		Notifications  bool   `json:"notifications"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	req.RecipientEmail = strings.TrimSpace(req.RecipientEmail)
	req.EmailSubject = strings.TrimSpace(req.EmailSubject)
	if req.RecipientEmail == "" {
		respondError(w, http.StatusBadRequest, errors.New("recipientEmail is required"))
		return
	}
	if req.EmailSubject == "" {
		respondError(w, http.StatusBadRequest, errors.New("emailSubject is required"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()
	orm := a.store.ORM.WithContext(ctx)

	var categoryID *uuid.UUID
	if req.CategoryID != "" {
		id, err := uuid.Parse(req.CategoryID)
		if err != nil {
			respondError(w, http.StatusBadRequest, errors.New("valid categoryId is required"))
			return
		}
		var category models.Category
		if err := orm.Where("id = ? AND user_id = ?", id, uid).First(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondError(w, http.StatusNotFound, errors.New("category not found"))
				return
			}
			respondFailure(w, err)
			return
		}
		categoryID = &id
	}

	token, err := track.NewToken()
	if err != nil {
		respondFailure(w, err)
		return
	}

	pixel := models.Pixel{
		Token:          token,
		UserID:         uid,
		CategoryID:     categoryID,
		RecipientEmail: req.RecipientEmail,
		EmailSubject:   req.EmailSubject,
		CreatorIP:      track.ClientIP(r),
		Notifications:  req.Notifications,
	}
	if err := orm.Create(&pixel).Error; err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{"pixelToken": pixel.Token})
}

// recordView applies the attribution policy and, for a counted view,
// commits the counter increment and the View row in one transaction so
// the denormalized counter always equals the number of rows.
func (a *API) recordView(ctx context.Context, pixel *models.Pixel, viewerIP, userAgent string) (bool, error) {
	if !a.config.TrackCreatorViews && track.IsCreator(viewerIP, pixel.CreatorIP) {
		viewsSuppressed.Inc()
		return false, nil
	}

	err := a.store.ORM.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Pixel{}).
			Where("id = ?", pixel.ID).
			UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
			return err
		}
		view := models.View{
			PixelID:   pixel.ID,
			ViewerIP:  viewerIP,
			UserAgent: userAgent,
			ViewedAt:  time.Now().UTC(),
		}
		return tx.Create(&view).Error
	})
	if err != nil {
		return false, err
	}
	viewsRecorded.Inc()
	return true, nil
}

// serveImage writes the fixed tracking image with headers defeating any
// intermediary or client cache, so every open reaches the server.
func serveImage(w http.ResponseWriter) {
	img := track.Image()
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(img)))
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

// handleTrackingImage backs both public image routes: record the view
// when possible, serve the image no matter what. A deleted pixel or a
// storage failure must never render as a broken icon in the mail client.
func (a *API) handleTrackingImage(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	viewerIP := track.ClientIP(r)

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	var pixel models.Pixel
	if err := a.store.ORM.WithContext(ctx).Where("token = ?", token).First(&pixel).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error().Err(err).Msg("pixel lookup")
		}
		serveImage(w)
		return
	}

	counted, err := a.recordView(ctx, &pixel, viewerIP, r.UserAgent())
	if err != nil {
		log.Error().Err(err).Str("token", token).Msg("record view")
	}
	if counted && a.notifier != nil {
		a.notifier.Enqueue(notify.Job{
			PixelID:  pixel.ID,
			ViewerIP: viewerIP,
			ViewedAt: time.Now().UTC(),
			Notify:   pixel.Notifications,
		})
	}

	serveImage(w)
}

func (a *API) handlePixelStats(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	query := a.store.ORM.WithContext(ctx).
		Where("user_id = ?", uid).
		Preload("Views", func(db *gorm.DB) *gorm.DB {
			return db.Order("viewed_at DESC")
		}).
		Order("created_at DESC")

	if raw := r.URL.Query().Get("categoryId"); raw != "" {
		categoryID, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, errors.New("valid categoryId is required"))
			return
		}
		query = query.Where("category_id = ?", categoryID)
	}

	var pixels []models.Pixel
	if err := query.Find(&pixels).Error; err != nil {
		respondFailure(w, err)
		return
	}

	out := make([]map[string]any, 0, len(pixels))
	for _, p := range pixels {
		views := p.Views
		if len(views) > recentViewsPerPixel {
			views = views[:recentViewsPerPixel]
		}
		maskedViews := make([]map[string]any, 0, len(views))
		for _, v := range views {
			maskedViews = append(maskedViews, map[string]any{
				"viewedAt":  v.ViewedAt,
				"viewerIp":  maskedIP,
				"userAgent": v.UserAgent,
			})
		}
		out = append(out, map[string]any{
			"id":             p.ID,
			"token":          p.Token,
			"recipientEmail": p.RecipientEmail,
			"emailSubject":   p.EmailSubject,
			"viewCount":      p.ViewCount,
			"createdAt":      p.CreatedAt,
			"creatorIp":      maskedIP,
			"categoryId":     p.CategoryID,
			"views":          maskedViews,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{"pixels": out})
}

func (a *API) handleDeletePixel(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	pixelID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid pixel id is required"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()
	orm := a.store.ORM.WithContext(ctx)

	// Ownership folds into the lookup: a foreign pixel and a missing one
	// answer identically.
	var pixel models.Pixel
	if err := orm.Where("id = ? AND user_id = ?", pixelID, uid).First(&pixel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, errors.New("pixel not found or unauthorized"))
			return
		}
		respondFailure(w, err)
		return
	}

	// Views go first because of the foreign key dependency.
	err = orm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pixel_id = ?", pixel.ID).Delete(&models.View{}).Error; err != nil {
			return err
		}
		return tx.Delete(&pixel).Error
	})
	if err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"message": "Pixel deleted successfully"})
}

func (a *API) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	now := time.Now()
	window := analytics.ParseRange(r.URL.Query().Get("range"))
	start := window.Start(now)

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	var pixels []models.Pixel
	err := a.store.ORM.WithContext(ctx).
		Where("user_id = ?", uid).
		Preload("Views", "viewed_at >= ?", start).
		Find(&pixels).Error
	if err != nil {
		respondFailure(w, err)
		return
	}

	input := make([]analytics.Pixel, 0, len(pixels))
	for _, p := range pixels {
		views := make([]analytics.View, 0, len(p.Views))
		for _, v := range p.Views {
			views = append(views, analytics.View{ViewedAt: v.ViewedAt})
		}
		input = append(input, analytics.Pixel{
			EmailSubject:   p.EmailSubject,
			RecipientEmail: p.RecipientEmail,
			ViewCount:      p.ViewCount,
			CreatedAt:      p.CreatedAt,
			Views:          views,
		})
	}

	respondJSON(w, http.StatusOK, analytics.Aggregate(input, now))
}

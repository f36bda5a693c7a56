package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"mailbeacon/internal/models"
)

func (a *API) handleListCategories(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	var categories []models.Category
	if err := a.store.ORM.WithContext(ctx).
		Where("user_id = ?", uid).
		Order("created_at ASC").
		Find(&categories).Error; err != nil {
		respondFailure(w, err)
		return
	}

	// One grouped query covers every category's pixel count.
	var counts []struct {
		CategoryID uuid.UUID
		Count      int64
	}
	if err := a.store.ORM.WithContext(ctx).
		Model(&models.Pixel{}).
		Select("category_id, count(*) AS count").
		Where("user_id = ? AND category_id IS NOT NULL", uid).
		Group("category_id").
		Scan(&counts).Error; err != nil {
		respondFailure(w, err)
		return
	}
	pixelsByCategory := make(map[uuid.UUID]int64, len(counts))
	for _, c := range counts {
		pixelsByCategory[c.CategoryID] = c.Count
	}

	out := make([]map[string]any, 0, len(categories))
	for _, c := range categories {
		out = append(out, map[string]any{
			"id":         c.ID,
			"name":       c.Name,
			"pixelCount": pixelsByCategory[c.ID],
		})
	}

	respondJSON(w, http.StatusOK, out)
}

func (a *API) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	name, err := a.decodeCategoryName(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()
	orm := a.store.ORM.WithContext(ctx)

	var existing models.Category
	err = orm.Where("user_id = ? AND name = ?", uid, name).First(&existing).Error
	switch {
	case err == nil:
		respondError(w, http.StatusBadRequest, errors.New("category already exists"))
		return
	case !errors.Is(err, gorm.ErrRecordNotFound):
		respondFailure(w, err)
		return
	}

	category := models.Category{Name: name, UserID: uid}
	if err := orm.Create(&category).Error; err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"id":   category.ID,
		"name": category.Name,
	})
}

func (a *API) handleCategoryStats(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	var categories []models.Category
	if err := a.store.ORM.WithContext(ctx).
		Where("user_id = ?", uid).
		Preload("Pixels.Views").
		Order("created_at ASC").
		Find(&categories).Error; err != nil {
		respondFailure(w, err)
		return
	}

	lastWeek := time.Now().AddDate(0, 0, -7)
	out := make([]map[string]any, 0, len(categories))
	for _, c := range categories {
		var totalViews int64
		recentViews := 0
		for _, p := range c.Pixels {
			totalViews += p.ViewCount
			for _, v := range p.Views {
				if !v.ViewedAt.Before(lastWeek) {
					recentViews++
				}
			}
		}
		out = append(out, map[string]any{
			"id":          c.ID,
			"name":        c.Name,
			"pixelCount":  len(c.Pixels),
			"totalViews":  totalViews,
			"recentViews": recentViews,
		})
	}

	respondJSON(w, http.StatusOK, out)
}

func (a *API) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	categoryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid category id is required"))
		return
	}

	name, err := a.decodeCategoryName(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()
	orm := a.store.ORM.WithContext(ctx)

	var category models.Category
	if err := orm.Where("id = ? AND user_id = ?", categoryID, uid).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, errors.New("category not found"))
			return
		}
		respondFailure(w, err)
		return
	}

	var duplicate models.Category
	err = orm.Where("user_id = ? AND name = ? AND id <> ?", uid, name, categoryID).First(&duplicate).Error
	switch {
	case err == nil:
		respondError(w, http.StatusBadRequest, errors.New("category already exists"))
		return
	case !errors.Is(err, gorm.ErrRecordNotFound):
		respondFailure(w, err)
		return
	}

	if err := orm.Model(&category).Update("name", name).Error; err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"id":   category.ID,
		"name": name,
	})
}

func (a *API) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	categoryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid category id is required"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()
	orm := a.store.ORM.WithContext(ctx)

	var category models.Category
	if err := orm.Where("id = ? AND user_id = ?", categoryID, uid).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, errors.New("category not found"))
			return
		}
		respondFailure(w, err)
		return
	}

	// Owned pixels survive the category; they just become uncategorized.
	err = orm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Pixel{}).
			Where("category_id = ?", category.ID).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&category).Error
	})
	if err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"message": "Category deleted successfully"})
}

func (a *API) decodeCategoryName(r *http.Request) (string, error) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return "", err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", errors.New("category name is required")
	}
	return name, nil
}

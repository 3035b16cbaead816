package deadlines

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/domyzanna/pittima/internal/models"
)

const dateLayout = "2006-01-02"

// deadlinePayload is the JSON body for create/update.
type deadlinePayload struct {
	Name             string `json:"name" binding:"required"`
	Description      string `json:"description"`
	CategoryID       *uint  `json:"categoryId"`
	ExpirationDate   string `json:"expirationDate" binding:"required"`
	Recurrence       string `json:"recurrence"`
	NotifyDaysBefore *int   `json:"notifyDaysBefore"`
}

// deadlineView is the JSON shape returned to clients, with the computed
// urgency annotations the dashboard renders.
type deadlineView struct {
	ID                 uint       `json:"id"`
	CategoryID         *uint      `json:"categoryId,omitempty"`
	Name               string     `json:"name"`
	Description        string     `json:"description,omitempty"`
	ExpirationDate     string     `json:"expirationDate"`
	Recurrence         string     `json:"recurrence"`
	NotifyDaysBefore   int        `json:"notifyDaysBefore"`
	NotificationStatus string     `json:"notificationStatus"`
	IsCompleted        bool       `json:"isCompleted"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	DaysRemaining      int        `json:"daysRemaining"`
	Urgency            Urgency    `json:"urgency"`
}

func toView(d *models.Deadline, now time.Time, loc *time.Location) deadlineView {
	daysLeft := DaysUntil(now, d.ExpirationDate, loc)
	return deadlineView{
		ID:                 d.ID,
		CategoryID:         d.CategoryID,
		Name:               d.Name,
		Description:        d.Description,
		ExpirationDate:     d.ExpirationDate.Format(dateLayout),
		Recurrence:         string(d.Recurrence),
		NotifyDaysBefore:   d.NotifyDaysBefore,
		NotificationStatus: d.NotificationStatus,
		IsCompleted:        d.IsCompleted,
		CompletedAt:        d.CompletedAt,
		DaysRemaining:      daysLeft,
		Urgency:            Classify(daysLeft),
	}
}

func sessionUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// loadOwned fetches a deadline by path id and enforces ownership.
func loadOwned(c *gin.Context, db *gorm.DB) (*models.Deadline, bool) {
	userID, ok := sessionUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
		return nil, false
	}

	var d models.Deadline
	err := db.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "deadline not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load deadline"})
		return nil, false
	}
	return &d, true
}

// ListHandler returns the current user's deadlines sorted by expiration.
func ListHandler(db *gorm.DB, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
			return
		}

		var items []models.Deadline
		if err := db.Where("user_id = ?", userID).Order("expiration_date asc").Find(&items).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to list deadlines"})
			return
		}

		now := time.Now()
		views := make([]deadlineView, len(items))
		for i := range items {
			views[i] = toView(&items[i], now, loc)
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "deadlines": views})
	}
}

// CreateHandler creates a new deadline for the current user.
func CreateHandler(db *gorm.DB, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
			return
		}

		var payload deadlinePayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
			return
		}

		expiration, err := time.ParseInLocation(dateLayout, payload.ExpirationDate, loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "expirationDate must be YYYY-MM-DD"})
			return
		}

		recurrence := models.Recurrence(payload.Recurrence)
		if payload.Recurrence == "" {
			recurrence = models.RecurrenceOneTime
		}
		if !recurrence.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown recurrence"})
			return
		}

		notifyDays := 30
		if payload.NotifyDaysBefore != nil {
			if *payload.NotifyDaysBefore < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "notifyDaysBefore must be >= 0"})
				return
			}
			notifyDays = *payload.NotifyDaysBefore
		}

		d := models.Deadline{
			UserID:             userID,
			CategoryID:         payload.CategoryID,
			Name:               payload.Name,
			Description:        payload.Description,
			ExpirationDate:     expiration,
			Recurrence:         recurrence,
			NotifyDaysBefore:   notifyDays,
			NotificationStatus: models.NotificationStatusPending,
		}
		if err := db.Create(&d).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create deadline"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"success": true, "deadline": toView(&d, time.Now(), loc)})
	}
}

// UpdateHandler edits a deadline. A changed expiration date restarts the
// notification cycle; the derived start date is recomputed by the save hook.
func UpdateHandler(db *gorm.DB, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, ok := loadOwned(c, db)
		if !ok {
			return
		}

		var payload deadlinePayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
			return
		}

		expiration, err := time.ParseInLocation(dateLayout, payload.ExpirationDate, loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "expirationDate must be YYYY-MM-DD"})
			return
		}

		if payload.Recurrence != "" {
			recurrence := models.Recurrence(payload.Recurrence)
			if !recurrence.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown recurrence"})
				return
			}
			d.Recurrence = recurrence
		}

		if payload.NotifyDaysBefore != nil {
			if *payload.NotifyDaysBefore < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "notifyDaysBefore must be >= 0"})
				return
			}
			d.NotifyDaysBefore = *payload.NotifyDaysBefore
		}

		if !expiration.Equal(d.ExpirationDate) {
			d.NotificationStatus = models.NotificationStatusPending
		}
		d.ExpirationDate = expiration
		d.Name = payload.Name
		d.Description = payload.Description
		d.CategoryID = payload.CategoryID

		if err := db.Save(d).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to update deadline"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "deadline": toView(d, time.Now(), loc)})
	}
}

// DeleteHandler removes a deadline from the scheduling population.
func DeleteHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, ok := loadOwned(c, db)
		if !ok {
			return
		}

		if err := db.Delete(d).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to delete deadline"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// CompleteHandler marks a deadline done. Terminal for one-time deadlines.
func CompleteHandler(db *gorm.DB, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, ok := loadOwned(c, db)
		if !ok {
			return
		}

		// Idempotent: completing twice keeps the first timestamp.
		if !d.IsCompleted {
			Complete(d, time.Now())
			if err := db.Save(d).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to complete deadline"})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "deadline": toView(d, time.Now(), loc)})
	}
}

// RenewHandler rolls a recurring deadline to its next cycle.
func RenewHandler(db *gorm.DB, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, ok := loadOwned(c, db)
		if !ok {
			return
		}

		if err := Renew(d); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		if err := db.Save(d).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to renew deadline"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "deadline": toView(d, time.Now(), loc)})
	}
}

// ListCategoriesHandler returns the lookup categories.
func ListCategoriesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var categories []models.Category
		if err := db.Order("name asc").Find(&categories).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to list categories"})
			return
		}

		views := make([]gin.H, len(categories))
		for i, cat := range categories {
			views[i] = gin.H{"id": cat.ID, "name": cat.Name, "icon": cat.Icon}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "categories": views})
	}
}

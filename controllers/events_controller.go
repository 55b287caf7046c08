package controllers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/phillip/club-events-go/models"
	"github.com/phillip/club-events-go/store"
	"github.com/phillip/club-events-go/utils"
)

type EventStore interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	Active(ctx context.Context) (*models.Event, error)
	List(ctx context.Context, q string) ([]models.Event, error)
	Create(ctx context.Context, ev *models.Event) error
	Update(ctx context.Context, id string, set bson.M) (*models.Event, error)
	Delete(ctx context.Context, id string) (*models.Event, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// PosterStore is nil when Cloudinary is not configured.
type PosterStore interface {
	UploadPoster(ctx context.Context, file multipart.File) (string, error)
	DeletePoster(ctx context.Context, url string) error
}

var errPostersDisabled = errors.New("poster uploads are not configured")

// uploadPoster returns "" when the request carries no poster file.
func uploadPoster(ctx context.Context, c *gin.Context, media PosterStore) (string, error) {
	fileHeader, err := c.FormFile("poster")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", err
	}
	if media == nil {
		return "", errPostersDisabled
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("open poster: %w", err)
	}
	defer file.Close()

	return media.UploadPoster(ctx, file)
}

func setCacheHeaders(c *gin.Context, id string, updatedAt time.Time) bool {
	etag := utils.GenerateETag(id, updatedAt)
	if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	c.Header("ETag", etag)
	c.Header("Last-Modified", updatedAt.UTC().Format(http.TimeFormat))
	return false
}

// ---------------- CREATE ----------------
func CreateEvent(events EventStore, media PosterStore, log *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			EventName       string `form:"eventName" json:"eventName" binding:"required"`
			Description     string `form:"description" json:"description"`
			RegistrationFee int64  `form:"registrationFee" json:"registrationFee" binding:"required,gt=0"`
			Currency        string `form:"currency" json:"currency"`
			EventType       string `form:"eventType" json:"eventType"`
			IsActive        bool   `form:"isActive" json:"isActive"`
		}
		if err := c.ShouldBind(&input); err != nil {
			badRequest(c, err)
			return
		}

		eventType := models.EventTypeIndividual
		if input.EventType != "" {
			eventType = models.EventType(strings.ToUpper(input.EventType))
			if !eventType.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "eventType must be INDIVIDUAL or HACKATHON", "code": "INVALID_REQUEST"})
				return
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
		defer cancel()

		posterURL, err := uploadPoster(ctx, c, media)
		if err != nil {
			log.Error().Err(err).Msg("poster upload failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "image upload failed", "details": err.Error()})
			return
		}

		currency := strings.ToUpper(strings.TrimSpace(input.Currency))
		if currency == "" {
			currency = "INR"
		}

		now := time.Now().UTC()
		event := models.Event{
			ID:              uuid.NewString(),
			EventName:       strings.TrimSpace(input.EventName),
			Description:     input.Description,
			RegistrationFee: input.RegistrationFee,
			Currency:        currency,
			IsActive:        input.IsActive,
			EventType:       eventType,
			PosterURL:       posterURL,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if err := events.Create(ctx, &event); err != nil {
			log.Error().Err(err).Str("event_id", event.ID).Msg("could not create event")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create event"})
			return
		}

		log.Info().Str("event_id", event.ID).Bool("active", event.IsActive).Msg("event created")
		c.JSON(http.StatusCreated, event)
	}
}

// ---------------- LIST ----------------
func ListEvents(events EventStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		list, err := events.List(ctx, c.Query("q"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch events"})
			return
		}

		if len(list) == 0 {
			c.JSON(http.StatusOK, []models.Event{})
			return
		}

		// --- Pick the most recently updated event ---
		latest := list[0]
		for _, ev := range list {
			if ev.UpdatedAt.After(latest.UpdatedAt) {
				latest = ev
			}
		}

		if setCacheHeaders(c, fmt.Sprintf("%s:%d", latest.ID, len(list)), latest.UpdatedAt) {
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// ---------------- GET ----------------
func GetEvent(events EventStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		event, err := events.GetEvent(ctx, c.Param("id"))
		if err != nil {
			respondEventError(c, err, "could not fetch event")
			return
		}

		if setCacheHeaders(c, event.ID, event.UpdatedAt) {
			return
		}
		c.JSON(http.StatusOK, event)
	}
}

// ---------------- ACTIVE ----------------
func GetActiveEvent(events EventStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		event, err := events.Active(ctx)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "no event is open for registration"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch active event"})
			return
		}

		if setCacheHeaders(c, event.ID, event.UpdatedAt) {
			return
		}
		c.JSON(http.StatusOK, event)
	}
}

// ---------------- UPDATE ----------------
func UpdateEvent(events EventStore, media PosterStore, log *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		var input struct {
			EventName       *string `form:"eventName" json:"eventName"`
			Description     *string `form:"description" json:"description"`
			RegistrationFee *int64  `form:"registrationFee" json:"registrationFee"`
			Currency        *string `form:"currency" json:"currency"`
			EventType       *string `form:"eventType" json:"eventType"`
			IsActive        *bool   `form:"isActive" json:"isActive"`
		}
		if err := c.ShouldBind(&input); err != nil {
			badRequest(c, err)
			return
		}

		set := bson.M{}
		if input.EventName != nil {
			name := strings.TrimSpace(*input.EventName)
			if name == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "eventName cannot be empty", "code": "INVALID_REQUEST"})
				return
			}
			set["eventName"] = name
		}
		if input.Description != nil {
			set["description"] = *input.Description
		}
		if input.RegistrationFee != nil {
			if *input.RegistrationFee <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "registrationFee must be greater than 0", "code": "INVALID_REQUEST"})
				return
			}
			set["registrationFee"] = *input.RegistrationFee
		}
		if input.Currency != nil && strings.TrimSpace(*input.Currency) != "" {
			set["currency"] = strings.ToUpper(strings.TrimSpace(*input.Currency))
		}
		if input.EventType != nil {
			et := models.EventType(strings.ToUpper(*input.EventType))
			if !et.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "eventType must be INDIVIDUAL or HACKATHON", "code": "INVALID_REQUEST"})
				return
			}
			set["eventType"] = et
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
		defer cancel()

		existing, err := events.GetEvent(ctx, id)
		if err != nil {
			respondEventError(c, err, "could not fetch event")
			return
		}

		posterURL, err := uploadPoster(ctx, c, media)
		if err != nil {
			log.Error().Err(err).Str("event_id", id).Msg("poster upload failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "image upload failed", "details": err.Error()})
			return
		}
		if posterURL != "" {
			set["posterUrl"] = posterURL
		}

		if len(set) == 0 && input.IsActive == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update", "code": "INVALID_REQUEST"})
			return
		}

		updated := existing
		if len(set) > 0 {
			if updated, err = events.Update(ctx, id, set); err != nil {
				respondEventError(c, err, "could not update event")
				return
			}
		}
		if input.IsActive != nil && *input.IsActive != existing.IsActive {
			if err := events.SetActive(ctx, id, *input.IsActive); err != nil {
				respondEventError(c, err, "could not change event status")
				return
			}
			if updated, err = events.GetEvent(ctx, id); err != nil {
				respondEventError(c, err, "could not fetch event")
				return
			}
		}

		if posterURL != "" && existing.PosterURL != "" && media != nil {
			if err := media.DeletePoster(ctx, existing.PosterURL); err != nil {
				log.Warn().Err(err).Str("event_id", id).Msg("could not delete replaced poster")
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Event updated successfully",
			"event":   updated,
		})
	}
}

// ---------------- DELETE ----------------
func DeleteEvent(events EventStore, media PosterStore, log *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		deleted, err := events.Delete(ctx, c.Param("id"))
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				log.Error().Err(err).Str("event_id", c.Param("id")).Msg("could not delete event")
			}
			respondEventError(c, err, "could not delete event")
			return
		}

		if deleted.PosterURL != "" && media != nil {
			if err := media.DeletePoster(ctx, deleted.PosterURL); err != nil {
				log.Warn().Err(err).Str("event_id", deleted.ID).Msg("could not delete poster")
			}
		}

		log.Info().Str("event_id", deleted.ID).Msg("event deleted")
		c.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully"})
	}
}

// ---------------- ACTIVATE / DEACTIVATE ----------------
func SetEventActive(events EventStore, active bool, log *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		if err := events.SetActive(ctx, id, active); err != nil {
			respondEventError(c, err, "could not change event status")
			return
		}

		event, err := events.GetEvent(ctx, id)
		if err != nil {
			respondEventError(c, err, "could not fetch event")
			return
		}

		log.Info().Str("event_id", id).Bool("active", active).Msg("event status changed")
		c.JSON(http.StatusOK, event)
	}
}

func respondEventError(c *gin.Context, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/phillip/club-events-go/models"
	"github.com/phillip/club-events-go/utils"
)

type SubmissionStore interface {
	AddContact(ctx context.Context, c *models.Contact) error
	AddJoinRequest(ctx context.Context, j *models.JoinRequest) error
	ListContacts(ctx context.Context, q string) ([]models.Contact, error)
	ListJoinRequests(ctx context.Context, q string) ([]models.JoinRequest, error)
}

// ---------------- CONTACTS ----------------
func CreateContact(subs SubmissionStore, log *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			FirstName     string `json:"fname" binding:"required"`
			LastName      string `json:"lname"`
			Email         string `json:"email" binding:"required,email"`
			PhoneNumber   string `json:"phone_number"`
			Message       string `json:"message" binding:"required,max=5000"`
			ServiceChoice string `json:"servicechoice"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		contact := models.Contact{
			FirstName:     strings.TrimSpace(input.FirstName),
			LastName:      strings.TrimSpace(input.LastName),
			Email:         strings.TrimSpace(input.Email),
			PhoneNumber:   strings.TrimSpace(input.PhoneNumber),
			Message:       input.Message,
			ServiceChoice: input.ServiceChoice,
			Timestamp:     time.Now().UTC(),
		}
		if err := subs.AddContact(ctx, &contact); err != nil {
			log.Error().Err(err).Msg("could not save contact")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save message"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"status": "success", "id": contact.ID})
	}
}

func ListContacts(subs SubmissionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		list, err := subs.ListContacts(ctx, strings.TrimSpace(c.Query("q")))
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch contacts"})
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func ExportContacts(subs SubmissionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		list, err := subs.ListContacts(ctx, strings.TrimSpace(c.Query("q")))
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch contacts"})
			return
		}

		rows := make([][]string, 0, len(list))
		for _, ct := range list {
			ts := ct.Timestamp
			rows = append(rows, []string{
				ct.FirstName, ct.LastName, ct.Email, ct.PhoneNumber,
				ct.Message, ct.ServiceChoice, utils.FormatTimestamp(&ts),
			})
		}
		sendCSV(c, "metaverse_contacts",
			[]string{"First Name", "Last Name", "Email", "Phone", "Message", "Service Choice", "Date"}, rows)
	}
}

// ---------------- JOIN REQUESTS ----------------
func CreateJoinRequest(subs SubmissionStore, log *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			FullName    string `json:"fullname" binding:"required"`
			Email       string `json:"email" binding:"required,email"`
			RegNumber   string `json:"reg_number" binding:"required"`
			PhoneNumber string `json:"phone_number"`
			Department  string `json:"department" binding:"required"`
			Reason      string `json:"reason" binding:"max=5000"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		join := models.JoinRequest{
			FullName:    strings.TrimSpace(input.FullName),
			Email:       strings.TrimSpace(input.Email),
			RegNumber:   strings.TrimSpace(input.RegNumber),
			PhoneNumber: strings.TrimSpace(input.PhoneNumber),
			Department:  strings.TrimSpace(input.Department),
			Reason:      input.Reason,
			Timestamp:   time.Now().UTC(),
		}
		if err := subs.AddJoinRequest(ctx, &join); err != nil {
			log.Error().Err(err).Msg("could not save join request")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save join request"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"status": "success", "id": join.ID})
	}
}

func ListJoinRequests(subs SubmissionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		list, err := subs.ListJoinRequests(ctx, strings.TrimSpace(c.Query("q")))
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch join requests"})
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func ExportJoinRequests(subs SubmissionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		list, err := subs.ListJoinRequests(ctx, strings.TrimSpace(c.Query("q")))
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch join requests"})
			return
		}

		rows := make([][]string, 0, len(list))
		for _, j := range list {
			ts := j.Timestamp
			rows = append(rows, []string{
				j.FullName, j.Email, j.RegNumber, j.PhoneNumber,
				j.Department, j.Reason, utils.FormatTimestamp(&ts),
			})
		}
		sendCSV(c, "metaverse_join_requests",
			[]string{"Full Name", "Email", "Registration Number", "Phone", "Department", "Reason", "Date"}, rows)
	}
}

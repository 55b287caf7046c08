package controllers

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/phillip/club-events-go/models"
	"github.com/phillip/club-events-go/store"
	"github.com/phillip/club-events-go/utils"
)

type RegistrationLister interface {
	List(ctx context.Context, f store.RegistrationFilter) ([]models.Registration, error)
}

var registrationHeaders = []string{
	"Name", "Registration Number", "Email", "Department", "Contact Number", "Registration Date",
	"Event", "Kind", "Team Name", "Payment Status", "Payment ID", "Error Code",
}

func registrationFilter(c *gin.Context) (store.RegistrationFilter, bool) {
	f := store.RegistrationFilter{
		EventID: c.Query("eventId"),
		Query:   strings.TrimSpace(c.Query("q")),
	}
	if s := strings.ToUpper(c.Query("status")); s != "" {
		f.Status = models.PaymentStatus(s)
		if f.Status != models.PaymentSuccessful && f.Status != models.PaymentFailed {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be SUCCESSFUL or FAILED", "code": "INVALID_REQUEST"})
			return f, false
		}
	}
	return f, true
}

// ---------------- LIST ----------------
func ListRegistrations(regs RegistrationLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, ok := registrationFilter(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		list, err := regs.List(ctx, f)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch registrations"})
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// ---------------- EXPORT ----------------
func ExportRegistrations(regs RegistrationLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, ok := registrationFilter(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		list, err := regs.List(ctx, f)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch registrations"})
			return
		}

		rows := make([][]string, 0, len(list))
		for i := range list {
			rows = append(rows, registrationRow(&list[i]))
		}
		sendCSV(c, "metaverse_registrations", registrationHeaders, rows)
	}
}

func registrationRow(r *models.Registration) []string {
	recorded := r.RegistrationTimestamp
	paymentID := r.PaymentID
	if r.PaymentStatus == models.PaymentFailed {
		recorded = r.FailureTimestamp
		paymentID = ""
		if r.RazorpayPaymentID != nil {
			paymentID = *r.RazorpayPaymentID
		}
	}

	team := ""
	if r.Kind == models.KindHackathon {
		team = r.Field("teamName")
	}

	return []string{
		firstField(r, "fullName", "name"),
		firstField(r, "registrationNumber", "reg_number", "regNumber"),
		r.Email(),
		r.Field("department"),
		firstField(r, "contact_number", "contactNumber", "phone"),
		utils.FormatTimestamp(recorded),
		r.EventName,
		string(r.Kind),
		team,
		string(r.PaymentStatus),
		paymentID,
		r.ErrorCode,
	}
}

func firstField(r *models.Registration, keys ...string) string {
	for _, k := range keys {
		if v := r.Field(k); v != "" {
			return v
		}
	}
	return ""
}

// sendCSV writes an export as an attachment. ?format=tsv switches to the
// tab-separated variant spreadsheets open directly.
func sendCSV(c *gin.Context, prefix string, headers []string, rows [][]string) {
	format := strings.ToLower(c.DefaultQuery("format", utils.FormatCSV))
	if format != utils.FormatCSV && format != utils.FormatTSV {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or tsv", "code": "INVALID_REQUEST"})
		return
	}

	var buf bytes.Buffer
	if err := utils.WriteExport(&buf, format, headers, rows); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build export"})
		return
	}

	contentType := "text/csv; charset=utf-8"
	if format == utils.FormatTSV {
		contentType = "text/tab-separated-values; charset=utf-8"
	}
	c.Header("Content-Disposition", `attachment; filename="`+utils.ExportFilename(prefix, format, time.Now())+`"`)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/phillip/club-events-go/payments"
	"github.com/phillip/club-events-go/utils"
)

const requestTimeout = 15 * time.Second

func statusForCode(code payments.Code) int {
	switch code {
	case payments.CodeInvalidRequest, payments.CodeInvalidAmount,
		payments.CodeEventClosed, payments.CodeSignatureMismatch:
		return http.StatusBadRequest
	case payments.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondPaymentError writes {"error","code"} for a payments error.
func respondPaymentError(c *gin.Context, err error) {
	code := payments.CodeOf(err)
	msg := "Internal server error."

	var pe *payments.Error
	if errors.As(err, &pe) && code != payments.CodeConfig && code != payments.CodeStore {
		msg = pe.Message
	}
	if code == "" {
		code = payments.CodeStore
	}

	_ = c.Error(err)
	c.JSON(statusForCode(code), gin.H{"error": msg, "code": code})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": utils.ValidationMessage(err), "code": payments.CodeInvalidRequest})
}

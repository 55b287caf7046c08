package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phillip/club-events-go/payments"
)

type PaymentService interface {
	CreateOrder(ctx context.Context, in payments.CreateOrderInput) (*payments.OrderResult, error)
	VerifyPayment(ctx context.Context, in payments.VerifyInput) (*payments.VerifyResult, error)
	LogFailure(ctx context.Context, in payments.FailureInput) (string, error)
}

// ---------------- CREATE ORDER ----------------
func CreateOrder(svc PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			EventID string      `json:"eventId"`
			Amount  interface{} `json:"amount"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		order, err := svc.CreateOrder(ctx, payments.CreateOrderInput{EventID: input.EventID, Amount: input.Amount})
		if err != nil {
			respondPaymentError(c, err)
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

// ---------------- VERIFY PAYMENT ----------------
func VerifyPayment(svc PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			PaymentID string                 `json:"razorpay_payment_id"`
			OrderID   string                 `json:"razorpay_order_id"`
			Signature string                 `json:"razorpay_signature"`
			EventID   string                 `json:"eventId"`
			FormData  map[string]interface{} `json:"formData"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		res, err := svc.VerifyPayment(ctx, payments.VerifyInput{
			PaymentID: input.PaymentID,
			OrderID:   input.OrderID,
			Signature: input.Signature,
			EventID:   input.EventID,
			FormData:  input.FormData,
		})
		if err != nil {
			if payments.CodeOf(err) == payments.CodeSignatureMismatch {
				c.JSON(http.StatusBadRequest, gin.H{
					"status":  "failure",
					"message": "Payment verification failed.",
					"code":    payments.CodeSignatureMismatch,
				})
				return
			}
			respondPaymentError(c, err)
			return
		}

		body := gin.H{
			"status":         "success",
			"message":        "Payment verified and registration saved.",
			"registrationId": res.RegistrationID,
			"paymentId":      res.PaymentID,
			"orderId":        res.OrderID,
		}
		if res.Duplicate {
			body["message"] = "Payment already verified."
			body["duplicate"] = true
		}
		c.JSON(http.StatusOK, body)
	}
}

// ---------------- LOG FAILED PAYMENT ----------------
func LogFailedPayment(svc PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			EventID   string                   `json:"eventId"`
			EventName string                   `json:"eventName"`
			FormData  map[string]interface{}   `json:"formData"`
			Error     *payments.GatewayFailure `json:"error"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		logID, err := svc.LogFailure(ctx, payments.FailureInput{
			EventID:   input.EventID,
			EventName: input.EventName,
			FormData:  input.FormData,
			Error:     input.Error,
		})
		if err != nil {
			respondPaymentError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success", "logId": logID})
	}
}

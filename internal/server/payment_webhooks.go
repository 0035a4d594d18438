package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	paymentdomain "github.com/blessingsjourney/payhook/internal/payment/domain"
)

type webhookAckResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	TransactionID string `json:"transactionId,omitempty"`
}

// HandlePayhipWebhook ingests PayHip's POST notifications. Non-sale events
// and redelivered sales are acknowledged with 200 so PayHip stops retrying.
func (s *Server) HandlePayhipWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if !json.Valid(payload) {
		AbortWithError(c, paymentdomain.ErrInvalidPayload)
		return
	}

	resp, err := s.paymentSvc.Ingest(c.Request.Context(), payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			c.JSON(http.StatusOK, webhookAckResponse{
				Success: true,
				Message: "Event received but not a sale",
			})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, webhookAckResponse{
		Success:       true,
		Message:       "Payment confirmed",
		TransactionID: resp.Record.TransactionID,
	})
}

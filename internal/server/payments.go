package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	paymentdomain "github.com/blessingsjourney/payhook/internal/payment/domain"
)

const healthTimestampLayout = "2006-01-02T15:04:05.000Z07:00"

type paymentLookupResponse struct {
	Found   bool                        `json:"found"`
	Payment paymentdomain.PaymentRecord `json:"payment"`
}

func (s *Server) GetPaymentByTransactionID(c *gin.Context) {
	record, err := s.paymentSvc.FindByTransactionID(c.Request.Context(), c.Param("transactionId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, paymentLookupResponse{Found: true, Payment: record})
}

func (s *Server) ListPayments(c *gin.Context) {
	resp, err := s.paymentSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetPaymentStats(c *gin.Context) {
	resp, err := s.paymentSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": s.clock.Now().UTC().Format(healthTimestampLayout),
	})
}

package payment

import (
	"github.com/blessingsjourney/payhook/internal/payment/adapters/payhip"
	"github.com/blessingsjourney/payhook/internal/payment/repository"
	paymentservice "github.com/blessingsjourney/payhook/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(payhip.NewAdapter),
	fx.Provide(paymentservice.NewService),
)

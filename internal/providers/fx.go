package providers

import (
	"github.com/smallbiznis/tourdesk/internal/providers/email"
	"github.com/smallbiznis/tourdesk/internal/providers/gateway"
	"github.com/smallbiznis/tourdesk/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	gateway.Module,
	pdf.Module,
)

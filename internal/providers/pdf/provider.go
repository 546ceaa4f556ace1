package pdf

import (
	"context"
	"io"

	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)

// Provider renders booking documents.
type Provider interface {
	GenerateVoucher(ctx context.Context, data VoucherData) (io.Reader, error)
}

package interfaces

import (
	"context"

	"spot-trading-bot/internal/types"
)

type Executor interface {
	SubmitMarketOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error)
}

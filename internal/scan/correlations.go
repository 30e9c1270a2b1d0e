package scan

import (
	"context"

	"github.com/polysentry/polysentry/internal/correlation"
	"github.com/polysentry/polysentry/internal/model"
)

// Correlations runs the cross-market wallet clustering pass. Only venues
// with real wallet identity participate; pseudo-wallet venues would make
// every wallet unique and every cluster empty.
func (o *Orchestrator) Correlations(ctx context.Context, opts correlation.Options) (*correlation.Report, error) {
	var markets []*model.Market
	for _, v := range o.eng.Venues {
		if !v.HasWalletIdentity() {
			continue
		}
		list, err := v.Markets(ctx, opts.MaxMarkets)
		if err != nil {
			continue
		}
		eng := correlation.NewEngine(v)
		for i := range list {
			markets = append(markets, &list[i])
		}
		return eng.Run(ctx, markets, opts), nil
	}
	return &correlation.Report{WindowHours: opts.WindowHours}, nil
}

package market

import "github.com/shopspring/decimal"

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// DefaultSnapshot holds the fixed quotes shown when no live feed is configured.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Currencies: []Quote{
			{Symbol: "USD/BRL", Name: "Dólar Americano", Price: d("5.12"), Change: d("0.85")},
			{Symbol: "EUR/BRL", Name: "Euro", Price: d("5.58"), Change: d("-0.32")},
			{Symbol: "BTC/BRL", Name: "Bitcoin", Price: d("285420.50"), Change: d("2.15")},
			{Symbol: "ETH/BRL", Name: "Ethereum", Price: d("12850.30"), Change: d("1.75")},
		},
		Stocks: []Quote{
			{Symbol: "PETR4", Name: "Petrobras", Price: d("32.45"), Change: d("1.25")},
			{Symbol: "VALE3", Name: "Vale", Price: d("68.90"), Change: d("-0.85")},
			{Symbol: "ITUB4", Name: "Itaú Unibanco", Price: d("28.75"), Change: d("0.65")},
			{Symbol: "BBDC4", Name: "Bradesco", Price: d("15.20"), Change: d("-1.15")},
		},
		Investments: []Investment{
			{Name: "Tesouro Selic 2029", Type: "Renda Fixa", Risk: RiskLow, Yield: "13.65%", MinInvestment: d("100")},
			{Name: "CDB Banco Inter", Type: "Renda Fixa", Risk: RiskLow, Yield: "12.80%", MinInvestment: d("500")},
			{Name: "Fundo Multimercado XP", Type: "Fundo", Risk: RiskMedium, Yield: "15.20%", MinInvestment: d("1000")},
			{Name: "ETF IVVB11", Type: "ETF", Risk: RiskHigh, Yield: "18.45%", MinInvestment: d("200")},
		},
	}
}

package broker

// SignatureRule is one declarative detection rule. A rule fires when every
// Require pattern appears in the header line and no Forbid pattern does.
// Matching is case-insensitive substring matching.
type SignatureRule struct {
	Broker  string
	Require []string
	Forbid  []string
}

// SignatureRules returns the override rule table evaluated by the sniffer.
// The slice order IS the precedence: rules are tried top to bottom and the
// first match wins. More column-specific signatures sit above the generic
// product/action shapes they overlap with; reorder only with sample files in
// hand (see signatures_test.go, which pins the current order).
func SignatureRules() []SignatureRule {
	return []SignatureRule{
		{Broker: Trading212, Require: []string{"no. of shares"}},
		{Broker: Trading212, Require: []string{"price / share", "action"}},
		{Broker: Revolut, Require: []string{"price per share", "ticker", "type"}},
		{Broker: Degiro, Require: []string{"product", "action"}, Forbid: []string{"ticker", "price per share"}},
		{Broker: IBKR, Require: []string{"symbol", "t. price"}},
		{Broker: IBKR, Require: []string{"symbol", "buy/sell"}},
		{Broker: EToro, Require: []string{"units", "open rate"}},
		{Broker: Coinbase, Require: []string{"quantity transacted"}},
		{Broker: Coinbase, Require: []string{"transaction type", "asset"}},
		{Broker: Kraken, Require: []string{"pair", "vol", "ordertxid"}},
		{Broker: Kraken, Require: []string{"pair", "vol", "cost"}},
		{Broker: Binance, Require: []string{"market", "amount", "price"}, Forbid: []string{"product"}},
		{Broker: Binance, Require: []string{"pair", "executed"}},
	}
}

// Package broker holds the read-only configuration describing every supported
// source platform: its identifier, column-name aliases, date convention and
// detection signature. Profiles are loaded once and shared across imports.
package broker

// Sentinel id returned by the sniffer when no signature matches.
const Unknown = "unknown"

// Supported broker identifiers.
const (
	Revolut    = "revolut"
	Trading212 = "trading212"
	Degiro     = "degiro"
	IBKR       = "ibkr"
	EToro      = "etoro"
	Binance    = "binance"
	Coinbase   = "coinbase"
	Kraken     = "kraken"
)

// Field is a logical column the row engine knows how to map.
type Field string

const (
	FieldDate       Field = "date"
	FieldTicker     Field = "ticker"
	FieldAction     Field = "action"
	FieldQuantity   Field = "quantity"
	FieldPrice      Field = "price"
	FieldCurrency   Field = "currency"
	FieldFee        Field = "fee"
	FieldInstrument Field = "instrument" // free-text product/company name
	FieldPair       Field = "pair"       // exchange pair like BTC/USDT
)

// DateConvention selects the layouts tried when parsing a broker's dates.
type DateConvention int

const (
	DateISO     DateConvention = iota // 2006-01-02, with or without time
	DateDMY                           // 02/01/2006
	DateMDY                           // 01/02/2006
	DateDMYDash                       // 02-01-2006
)

// TickerStrategy describes where a profile's ticker comes from when no
// explicit symbol column exists.
type TickerStrategy int

const (
	TickerColumn       TickerStrategy = iota // explicit symbol column
	TickerPairBase                           // base asset of an exchange pair
	TickerDetailSuffix                       // "Apple Inc/AAPL" style detail column
	TickerNameLookup                         // curated company-name lookup
)

// Profile describes one supported source. Profiles are immutable; the parser
// engine reads them, never writes.
type Profile struct {
	ID          string
	DisplayName string

	// Aliases maps each logical field to the column names this broker has
	// been observed to use, in preference order. Matching is case-insensitive.
	Aliases map[Field][]string

	DateConv        DateConvention
	DefaultCurrency string
	Ticker          TickerStrategy

	// NegativeQtyIsSell marks exports (IBKR) where the side is encoded in the
	// sign of the quantity rather than in the action text.
	NegativeQtyIsSell bool
}

// Profiles returns every supported broker profile keyed by id.
func Profiles() map[string]Profile {
	out := make(map[string]Profile, len(profileList))
	for _, p := range profileList {
		out[p.ID] = p
	}
	return out
}

var profileList = []Profile{
	{
		ID:          Revolut,
		DisplayName: "Revolut",
		Aliases: map[Field][]string{
			FieldDate:     {"Date", "Completed Date"},
			FieldTicker:   {"Ticker", "Symbol"},
			FieldAction:   {"Type"},
			FieldQuantity: {"Quantity"},
			FieldPrice:    {"Price per share"},
			FieldCurrency: {"Currency"},
			FieldFee:      {"Fee"},
		},
		DateConv:        DateISO,
		DefaultCurrency: "USD",
		Ticker:          TickerColumn,
	},
	{
		ID:          Trading212,
		DisplayName: "Trading 212",
		Aliases: map[Field][]string{
			FieldDate:       {"Time", "Date"},
			FieldTicker:     {"Ticker"},
			FieldAction:     {"Action"},
			FieldQuantity:   {"No. of shares", "Quantity"},
			FieldPrice:      {"Price / share", "Price per share"},
			FieldCurrency:   {"Currency (Price / share)", "Currency"},
			FieldFee:        {"Charge amount", "Currency conversion fee"},
			FieldInstrument: {"Name"},
		},
		DateConv:        DateISO,
		DefaultCurrency: "GBP",
		Ticker:          TickerColumn,
	},
	{
		ID:          Degiro,
		DisplayName: "DEGIRO",
		Aliases: map[Field][]string{
			FieldDate:       {"Date", "Datum"},
			FieldAction:     {"Action", "Description"},
			FieldQuantity:   {"Quantity", "Number", "Aantal"},
			FieldPrice:      {"Price", "Koers"},
			FieldCurrency:   {"Currency"},
			FieldFee:        {"Transaction costs", "Costs"},
			FieldInstrument: {"Product"},
		},
		DateConv:        DateDMYDash,
		DefaultCurrency: "EUR",
		Ticker:          TickerNameLookup,
	},
	{
		ID:          IBKR,
		DisplayName: "Interactive Brokers",
		Aliases: map[Field][]string{
			FieldDate:     {"Date/Time", "TradeDate", "Date"},
			FieldTicker:   {"Symbol"},
			FieldAction:   {"Buy/Sell", "Code"},
			FieldQuantity: {"Quantity"},
			FieldPrice:    {"T. Price", "TradePrice", "Price"},
			FieldCurrency: {"Currency"},
			FieldFee:      {"Comm/Fee", "Commission", "IBCommission"},
		},
		DateConv:          DateISO,
		DefaultCurrency:   "USD",
		Ticker:            TickerColumn,
		NegativeQtyIsSell: true,
	},
	{
		ID:          EToro,
		DisplayName: "eToro",
		Aliases: map[Field][]string{
			FieldDate:       {"Date", "Open Date"},
			FieldAction:     {"Type"},
			FieldQuantity:   {"Units"},
			FieldPrice:      {"Open Rate", "Rate", "Price"},
			FieldFee:        {"Fees"},
			FieldInstrument: {"Details", "Instrument"},
		},
		DateConv:        DateDMY,
		DefaultCurrency: "USD",
		Ticker:          TickerDetailSuffix,
	},
	{
		ID:          Binance,
		DisplayName: "Binance",
		Aliases: map[Field][]string{
			FieldDate:     {"Date(UTC)", "Date"},
			FieldAction:   {"Type", "Side"},
			FieldQuantity: {"Amount", "Executed"},
			FieldPrice:    {"Price"},
			FieldFee:      {"Fee"},
			FieldPair:     {"Market", "Pair"},
		},
		DateConv:        DateISO,
		DefaultCurrency: "USD",
		Ticker:          TickerPairBase,
	},
	{
		ID:          Coinbase,
		DisplayName: "Coinbase",
		Aliases: map[Field][]string{
			FieldDate:     {"Timestamp"},
			FieldTicker:   {"Asset"},
			FieldAction:   {"Transaction Type"},
			FieldQuantity: {"Quantity Transacted"},
			FieldPrice:    {"Spot Price at Transaction", "Price at Transaction"},
			FieldCurrency: {"Spot Price Currency", "Price Currency"},
			FieldFee:      {"Fees", "Fees and/or Spread"},
		},
		DateConv:        DateISO,
		DefaultCurrency: "USD",
		Ticker:          TickerColumn,
	},
	{
		ID:          Kraken,
		DisplayName: "Kraken",
		Aliases: map[Field][]string{
			FieldDate:     {"time"},
			FieldAction:   {"type"},
			FieldQuantity: {"vol"},
			FieldPrice:    {"price"},
			FieldFee:      {"fee"},
			FieldPair:     {"pair"},
		},
		DateConv:        DateISO,
		DefaultCurrency: "USD",
		Ticker:          TickerPairBase,
	},
}

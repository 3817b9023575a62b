package venue

import "arbwatch/internal/domain/models"

const (
	Binance  models.Venue = "binance"
	Coinbase models.Venue = "coinbase"
)

// BinanceTradeDecoder reads individual trade events, price in "p".
func BinanceTradeDecoder() FieldDecoder {
	return FieldDecoder{PriceField: "p", TypeField: "e", TypeValue: "trade"}
}

// CoinbaseTickerDecoder reads ticker events, price in "price".
func CoinbaseTickerDecoder() FieldDecoder {
	return FieldDecoder{PriceField: "price", TypeField: "type", TypeValue: "ticker"}
}

// CoinbaseSubscribe is the ticker subscription request sent right after connecting.
const CoinbaseSubscribe = `{"type":"subscribe","channels":[{"name":"ticker","product_ids":["BTC-USD"]}]}`

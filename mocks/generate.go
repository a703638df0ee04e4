package mocks

//go:generate mockgen -destination=./mock_exchange.go -package=mocks github.com/openquant-labs/signalfan/internal/exchange Exchange
//go:generate mockgen -destination=./mock_store.go -package=mocks github.com/openquant-labs/signalfan/internal/store Store
//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/openquant-labs/signalfan/pkg/marketdata/provider Provider
//go:generate mockgen -destination=./mock_candle_source.go -package=mocks github.com/openquant-labs/signalfan/internal/runner CandleSource
//go:generate mockgen -destination=./mock_candle_writer.go -package=mocks github.com/openquant-labs/signalfan/pkg/marketdata/writer CandleWriter

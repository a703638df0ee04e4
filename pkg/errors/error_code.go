package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidSignal        ErrorCode = 102
	ErrCodeInvalidTakeProfit    ErrorCode = 103
	ErrCodeInvalidStopLoss      ErrorCode = 104
	ErrCodeInvalidQuantity      ErrorCode = 105
	ErrCodeInvalidTimeframe     ErrorCode = 106
	ErrCodeMissingParameter     ErrorCode = 107
	ErrCodeInvalidVersion       ErrorCode = 108

	// Store errors (200-299)
	ErrCodeStoreUnavailable   ErrorCode = 200
	ErrCodeQueryFailed        ErrorCode = 201
	ErrCodeRecordNotFound     ErrorCode = 202
	ErrCodeConfigNotFound     ErrorCode = 203
	ErrCodeDuplicateExecution ErrorCode = 204
	ErrCodePositionNotFound   ErrorCode = 205
	ErrCodeStoreInitFailed    ErrorCode = 206
	ErrCodeExecutionNotFound  ErrorCode = 207
	ErrCodeConfigDecodeFailed ErrorCode = 208

	// Indicator errors (300-399)
	ErrCodeIndicatorCalculation ErrorCode = 300

	// Signal engine / hub errors (400-499)
	ErrCodeEngineConfigError ErrorCode = 400
	ErrCodeSignalNotFound    ErrorCode = 401
	ErrCodeSignalExpired     ErrorCode = 402
	ErrCodeSignalNotActive   ErrorCode = 403
	ErrCodeHubClosed         ErrorCode = 404
	ErrCodeVersionMismatch   ErrorCode = 405
	ErrCodeDuplicateSignal   ErrorCode = 406

	// Trading/exchange errors (500-599)
	ErrCodeOrderFailed        ErrorCode = 500
	ErrCodeLeverageFailed     ErrorCode = 501
	ErrCodeMarkPriceFailed    ErrorCode = 502
	ErrCodeBalanceFailed      ErrorCode = 503
	ErrCodeCancelOrdersFailed ErrorCode = 504
	ErrCodeExchangeState      ErrorCode = 505

	// Monitoring errors (600-699)
	ErrCodeMonitorTickFailed ErrorCode = 600
	ErrCodePositionClosed    ErrorCode = 601

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataParseFailed ErrorCode = 701
	ErrCodeMarketDataWriteFailed ErrorCode = 702
	ErrCodeInvalidProvider       ErrorCode = 703
)

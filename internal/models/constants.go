package models

const (
	// DefaultDayStartMinute начало канонического "весь день" окна (08:00)
	DefaultDayStartMinute = 8 * 60

	// DefaultDayEndMinute конец канонического "весь день" окна (22:00)
	DefaultDayEndMinute = 22 * 60

	// DefaultFeeRatePercent комиссия платформы в процентах
	DefaultFeeRatePercent = 15

	// DefaultMaxBookingDays максимальный горизонт бронирования
	DefaultMaxBookingDays = 90

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 1000

	// DefaultIdempotencyTTL время жизни ключа идемпотентности в секундах
	DefaultIdempotencyTTL = 24 * 60 * 60

	// RateLimitRequests количество запросов в окне
	RateLimitRequests = 30

	// RateLimitWindow окно ограничения частоты запросов в секундах
	RateLimitWindow = 60
)

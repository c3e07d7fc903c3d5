package models

// TimeSlots фиксированная сетка получасовых слотов с 09:00 до 17:30
var TimeSlots = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"12:00", "12:30", "13:00", "13:30", "14:00", "14:30",
	"15:00", "15:30", "16:00", "16:30", "17:00", "17:30",
}

// Services каталог услуг по умолчанию, заменяется из configs/services.yaml
var Services = []string{
	"Pet Grooming",
	"Veterinary Checkup",
	"Pet Vaccination",
	"Pet Dental Care",
	"Pet Nail Trimming",
	"Pet Bathing",
	"Pet Training Session",
	"Pet Boarding Consultation",
	"Pet Health Consultation",
	"Emergency Pet Care",
	"Pet Surgery Consultation",
	"Other Pet Services",
}

const (
	// SuccessNotificationTTL время показа уведомления об успехе, в миллисекундах
	SuccessNotificationTTL = 5000

	// ErrorNotificationTTL время показа уведомления об ошибке, в миллисекундах
	ErrorNotificationTTL = 8000

	// SlotsCacheTTL время жизни кэша занятых слотов, в секундах
	SlotsCacheTTL = 30

	// DefaultRateLimitBurst запас запросов для лимитера API
	DefaultRateLimitBurst = 5
)

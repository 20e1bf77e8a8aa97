package models

import (
	"time"
)

// LogStatus classifies the outcome of one delivery cycle
type LogStatus string

const (
	StatusSuccess LogStatus = "success"
	StatusWarning LogStatus = "warning"
	StatusError   LogStatus = "error"
	StatusTest    LogStatus = "test"
)

// MaxLogMessageLen is the stored prefix of the delivered message
const MaxLogMessageLen = 500

// DeliveryLog records the outcome of one digest cycle. Entries are
// immutable once written; ConfigID is a weak reference, logs outlive
// the configuration that produced them.
type DeliveryLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ConfigID  uint      `gorm:"index" json:"config_id"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Status    LogStatus `gorm:"not null" json:"status"`
}

// NewDeliveryLog builds a log entry, truncating the message to the
// stored prefix length.
func NewDeliveryLog(configID uint, message string, status LogStatus) *DeliveryLog {
	if r := []rune(message); len(r) > MaxLogMessageLen {
		message = string(r[:MaxLogMessageLen])
	}
	return &DeliveryLog{
		ConfigID:  configID,
		Timestamp: time.Now(),
		Message:   message,
		Status:    status,
	}
}

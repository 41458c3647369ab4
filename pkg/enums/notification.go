package enums

import "fmt"

// NotificationType maps to the notification_type column.
type NotificationType string

const (
	NotificationTypeInfo            NotificationType = "INFO"
	NotificationTypeSuccess         NotificationType = "SUCCESS"
	NotificationTypeWarning         NotificationType = "WARNING"
	NotificationTypeError           NotificationType = "ERROR"
	NotificationTypePaymentReceived NotificationType = "PAYMENT_RECEIVED"
	NotificationTypePaymentFailed   NotificationType = "PAYMENT_FAILED"
	NotificationTypePaymentRefunded NotificationType = "PAYMENT_REFUNDED"
	NotificationTypeInvoiceOverdue  NotificationType = "INVOICE_OVERDUE"
	NotificationTypeLowStock        NotificationType = "LOW_STOCK"
	NotificationTypeSystem          NotificationType = "SYSTEM"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeInfo,
	NotificationTypeSuccess,
	NotificationTypeWarning,
	NotificationTypeError,
	NotificationTypePaymentReceived,
	NotificationTypePaymentFailed,
	NotificationTypePaymentRefunded,
	NotificationTypeInvoiceOverdue,
	NotificationTypeLowStock,
	NotificationTypeSystem,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// NotificationTypes returns every notification type in canonical order.
func NotificationTypes() []NotificationType {
	out := make([]NotificationType, len(validNotificationTypes))
	copy(out, validNotificationTypes)
	return out
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// NotificationPriority ranks how prominently a notification is surfaced.
type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "LOW"
	NotificationPriorityMedium NotificationPriority = "MEDIUM"
	NotificationPriorityHigh   NotificationPriority = "HIGH"
	NotificationPriorityUrgent NotificationPriority = "URGENT"
)

var validNotificationPriorities = []NotificationPriority{
	NotificationPriorityLow,
	NotificationPriorityMedium,
	NotificationPriorityHigh,
	NotificationPriorityUrgent,
}

// IsValid checks whether the given priority matches the canonical enum.
func (p NotificationPriority) IsValid() bool {
	for _, candidate := range validNotificationPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// NotificationPriorities returns every priority from lowest to highest.
func NotificationPriorities() []NotificationPriority {
	out := make([]NotificationPriority, len(validNotificationPriorities))
	copy(out, validNotificationPriorities)
	return out
}

// ParseNotificationPriority converts raw strings into NotificationPriority.
func ParseNotificationPriority(value string) (NotificationPriority, error) {
	for _, candidate := range validNotificationPriorities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification priority %q", value)
}

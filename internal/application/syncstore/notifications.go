package syncstore

import "time"

// Tipos de notificación.
const (
	NotificationSuccess = "success"
	NotificationError   = "error"
	NotificationInfo    = "info"
	NotificationWarning = "warning"
)

// maxNotifications solo se conservan las últimas N.
const maxNotifications = 5

// Notification resultado de una operación, listo para mostrarse al usuario.
type Notification struct {
	Type        string    `json:"type"`
	Message     string    `json:"message"`
	Description string    `json:"description,omitempty"`
	At          time.Time `json:"at"`
}

func (s *Store) pushNotificationLocked(n Notification) {
	s.notifications = append(s.notifications, n)
	if over := len(s.notifications) - maxNotifications; over > 0 {
		s.notifications = append([]Notification(nil), s.notifications[over:]...)
	}
}

// Notify agrega una notificación y avisa a los observadores.
func (s *Store) Notify(kind, message, description string) {
	s.mu.Lock()
	s.pushNotificationLocked(Notification{Type: kind, Message: message, Description: description, At: s.now()})
	s.mu.Unlock()
	s.publish()
}

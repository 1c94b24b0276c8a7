package reminder

import (
	"fmt"

	"dossier/internal/compliance/models"
	notificationModels "dossier/internal/notification/models"
)

// content is the user-facing part of a reminder.
type content struct {
	Title    string
	Message  string
	Type     notificationModels.Type
	Priority notificationModels.Priority
}

// inDays renders a non-negative day count relative to today.
func inDays(n int) string {
	switch n {
	case 0:
		return "hoy"
	case 1:
		return "mañana"
	default:
		return fmt.Sprintf("en %d días", n)
	}
}

// daysAgo renders a positive day count in the past.
func daysAgo(n int) string {
	if n == 1 {
		return "ayer"
	}
	return fmt.Sprintf("hace %d días", n)
}

func expiringContent(docType string, rt models.ReminderType, days int) content {
	c := content{
		Title:    "Documento próximo a vencer",
		Message:  fmt.Sprintf("%s vence %s", docType, inDays(days)),
		Type:     notificationModels.TypeWarning,
		Priority: notificationModels.PriorityHigh,
	}
	if rt == models.ReminderUrgent {
		c.Title = "Documento por vencer"
		c.Priority = notificationModels.PriorityUrgent
	}
	return c
}

func expiredContent(docType string, days int) content {
	return content{
		Title:    "Documento vencido",
		Message:  fmt.Sprintf("%s venció %s. Sube una versión vigente.", docType, daysAgo(-days)),
		Type:     notificationModels.TypeError,
		Priority: notificationModels.PriorityUrgent,
	}
}

func pendingContent(docType string, rt models.ReminderType, days int) content {
	switch rt {
	case models.ReminderOverdue:
		return content{
			Title:    "Entrega de documento atrasada",
			Message:  fmt.Sprintf("La entrega de %s venció %s", docType, daysAgo(-days)),
			Type:     notificationModels.TypeError,
			Priority: notificationModels.PriorityUrgent,
		}
	case models.ReminderUrgent:
		return content{
			Title:    "Entrega de documento hoy",
			Message:  fmt.Sprintf("La entrega de %s vence hoy", docType),
			Type:     notificationModels.TypeWarning,
			Priority: notificationModels.PriorityHigh,
		}
	default:
		return content{
			Title:    "Documento pendiente",
			Message:  fmt.Sprintf("La entrega de %s vence %s", docType, inDays(days)),
			Type:     notificationModels.TypeInfo,
			Priority: notificationModels.PriorityMedium,
		}
	}
}

func renewalContent(docType string, days int) content {
	return content{
		Title:    "Renovación próxima",
		Message:  fmt.Sprintf("%s debe renovarse %s", docType, inDays(days)),
		Type:     notificationModels.TypeInfo,
		Priority: notificationModels.PriorityMedium,
	}
}

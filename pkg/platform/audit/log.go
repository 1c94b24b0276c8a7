package audit

import (
	"context"
	"log/slog"

	"dossier/pkg/requestcontext"
)

// LogAudit writes an audit line: the event name as message plus "event" and
// "log_type" attributes, enriched with the request id and job trigger when
// present. A "subject" attribute is derived from user_id or requirement_id.
func LogAudit(ctx context.Context, logger *slog.Logger, event string, attrList ...any) {
	if logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrList = append(attrList, "request_id", requestID)
	}
	if trigger := requestcontext.Trigger(ctx); trigger != "" {
		attrList = append(attrList, "trigger", trigger)
	}
	if subject := extractSubject(attrList); subject != "" {
		attrList = append(attrList, "subject", subject)
	}
	args := append(attrList, "event", event, "log_type", "audit")
	logger.InfoContext(ctx, event, args...)
}

func extractSubject(attrList []any) string {
	for _, key := range []string{"user_id", "requirement_id", "job"} {
		if val := stringAttr(attrList, key); val != "" {
			return val
		}
	}
	return ""
}

// stringAttr returns the string value paired with key in a slog-style
// key/value list.
func stringAttr(attrList []any, key string) string {
	for i := 0; i+1 < len(attrList); i += 2 {
		if k, ok := attrList[i].(string); ok && k == key {
			v, _ := attrList[i+1].(string)
			return v
		}
	}
	return ""
}

package log

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
	ErrDetailAttrKey  = "error_detail"
)

// splitError pulls a leading error value off a field list.
func splitError(fields []any) (error, []any) {
	if len(fields) == 0 {
		return nil, fields
	}
	if err, ok := fields[0].(error); ok {
		return err, fields[1:]
	}
	return nil, fields
}

// appendError adds err, its stack trace and, for the typed errors in
// pkg/errors, their structured detail to the event.
func appendError(e *zerolog.Event, err error) *zerolog.Event {
	if err == nil {
		return e
	}
	e = e.Str(ErrAttrKey, err.Error())
	if st := extractStacktrace(err); st != "" {
		e = e.Str(StacktraceAttrKey, st)
	}
	var marshaler zerolog.LogObjectMarshaler
	if errors.As(err, &marshaler) {
		e = e.Object(ErrDetailAttrKey, marshaler)
	}
	return e
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

// fieldMap turns alternating key/value pairs into a map. A trailing key
// without a value is kept with a placeholder.
func fieldMap(fields []any) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}
	m := make(map[string]interface{}, len(fields)/2+1)
	for i := 0; i < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprint(fields[i])
		}
		if i+1 >= len(fields) {
			m[key] = "!MISSING"
			break
		}
		switch v := fields[i+1].(type) {
		case error:
			m[key] = v.Error()
		default:
			m[key] = v
		}
	}
	return m
}

package log

import (
	"fmt"
	"log/slog"
)

func InstanceID(id string) slog.Attr {
	return slog.String("request_id", id)
}

func EmployeeID(id string) slog.Attr {
	return slog.String("employee_id", id)
}

func StageID(id string) slog.Attr {
	return slog.String("step_id", id)
}

func TaskID(id string) slog.Attr {
	return slog.String("task_id", id)
}

func Status(status fmt.Stringer) slog.Attr {
	return slog.String("status", status.String())
}

func Actor(actor string) slog.Attr {
	return slog.String("actor", actor)
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}

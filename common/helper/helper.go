package helper

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

func GetUUID() string {
	code := uuid.New().String()
	code = strings.Replace(code, "-", "", -1)
	return code
}

// GenRequestID returns a timestamp (YYYYMMDDHHmmss) followed by 8 uuid characters.
func GenRequestID() string {
	return time.Now().Format("20060102150405") + GetUUID()[:8]
}

func GetTimestamp() int64 {
	return time.Now().Unix()
}

func MessageWithRequestId(message string, id string) string {
	if id == "" {
		return message
	}
	return fmt.Sprintf("%s (request id: %s)", message, id)
}

// SplitCommaList trims every element and drops empty ones.
func SplitCommaList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

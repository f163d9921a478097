package uploads

import (
	"log"
	"os"
	"strings"
)

var uploadsDebugEnabled = strings.EqualFold(os.Getenv("DOCCHAT_DEBUG"), "1")

func debugLog(format string, args ...interface{}) {
	if uploadsDebugEnabled {
		log.Printf(format, args...)
	}
}

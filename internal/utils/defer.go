package utils

import (
	"io"

	"github.com/MrSnakeDoc/cellar/internal/logger"
)

// MustClose closes c and logs, rather than returns, a close error. Only for
// readers, where a failed close cannot lose data.
func MustClose(c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Warn("close: %v", err)
	}
}

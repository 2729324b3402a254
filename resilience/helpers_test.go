/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package resilience

import (
	"fmt"
	"syscall"
)

func syscallReset() error {
	return fmt.Errorf("read: %w", syscall.ECONNRESET)
}

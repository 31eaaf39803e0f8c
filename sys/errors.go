package sys

import (
	"fmt"
	"runtime"

	"github.com/agentuity/pokedex/logger"
)

func panicError(skip int, r any) error {
	_, file, line, _ := runtime.Caller(skip + 1)
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic at %s:%d: %w", file, line, err)
	}
	return fmt.Errorf("panic at %s:%d: %v", file, line, r)
}

// RecoverPanic recovers a panic in the calling goroutine and logs it as an
// error. It must be deferred directly.
func RecoverPanic(log logger.Logger) {
	if r := recover(); r != nil {
		log.Error("recovered: %s", panicError(2, r))
	}
}

// RecoverError is like RecoverPanic but also stores the panic as *errp so the
// surrounding function can return it.
func RecoverError(log logger.Logger, errp *error) {
	if r := recover(); r != nil {
		err := panicError(2, r)
		log.Error("recovered: %s", err)
		if errp != nil {
			*errp = err
		}
	}
}

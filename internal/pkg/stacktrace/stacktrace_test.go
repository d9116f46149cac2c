package stacktrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternalPaths(t *testing.T) {
	stack := []byte(`goroutine 7 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/shandysiswandi/apex/internal/pkg/goroutine.(*Manager).Go.func1.1()
	/app/internal/pkg/goroutine/goroutine.go:71 +0x8a
panic({0x1, 0x2})
	/usr/local/go/src/runtime/panic.go:785 +0x132
github.com/shandysiswandi/apex/internal/security/usecase.(*Usecase).MFAConfirm(...)
	/app/internal/security/usecase/mfa_confirm.go:42
`)

	assert.Equal(t, []string{
		"internal/pkg/goroutine/goroutine.go:71",
		"internal/security/usecase/mfa_confirm.go:42",
	}, InternalPaths(stack))

	assert.Empty(t, InternalPaths([]byte("runtime/debug.Stack()\n\t/usr/local/go/src/runtime/debug/stack.go:26")))
}

package core

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateLabel produces a unique debug label for GPU resources created
// without an explicit name, so tooling output stays distinguishable.
func GenerateLabel(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.New().String())
}

package directory

import (
	"fmt"
	"strings"

	"github.com/weberc2/diskfs/pkg/fs"
	. "github.com/weberc2/diskfs/pkg/types"
)

// ValidateName checks that `name` can be used as a directory entry.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("validating name `%s`: %w", name, InvalidNameErr)
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf(
			"validating name `%s`: contains `/` or NUL: %w",
			name,
			InvalidNameErr,
		)
	case len(name) > int(fs.MaxNameLen):
		return fmt.Errorf(
			"validating name `%s`: `%d` bytes exceeds `%d`: %w",
			name,
			len(name),
			fs.MaxNameLen,
			NameTooLongErr,
		)
	}
	return nil
}

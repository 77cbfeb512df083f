// Package pidarg parses process id arguments of the commands.
package pidarg

import (
	"strconv"

	"github.com/safedep/unmutex/usefulerror"
)

func Parse(arg string) (uint32, error) {
	pid, err := strconv.ParseUint(arg, 10, 32)
	if err != nil || pid == 0 {
		return 0, usefulerror.Useful().
			WithCode(usefulerror.ErrCodeInvalidArgument).
			WithHumanError("Invalid process id: " + arg).
			Msg("invalid pid " + strconv.Quote(arg)).
			WithHelp("Pass the numeric pid shown by `unmutex instances list` or Task Manager")
	}

	return uint32(pid), nil
}

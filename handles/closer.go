package handles

import (
	"github.com/safedep/dry/log"
	"github.com/safedep/unmutex/ntapi"
)

// Closer closes handles inside the process that owns them.
type Closer struct {
	sys ntapi.System
}

func NewCloser(sys ntapi.System) *Closer {
	return &Closer{sys: sys}
}

// Close duplicates the record's handle out of its owner with
// DUPLICATE_CLOSE_SOURCE and no target process, which makes the owner's handle
// go away. For a mutex held by only that handle this also removes its name.
func (c *Closer) Close(record SystemHandleRecord) error {
	owner, err := c.sys.OpenProcess(record.OwnerPID, ntapi.ProcessDupHandle)
	if err != nil {
		return &CloseError{
			Reason:      ReasonOpenProcess,
			Code:        ntapi.ErrorCode(err),
			PID:         record.OwnerPID,
			HandleValue: record.HandleValue,
			Err:         err,
		}
	}

	defer func() {
		if err := c.sys.CloseHandle(owner); err != nil {
			log.Warnf("Failed to close process handle of pid %d: %v", record.OwnerPID, err)
		}
	}()

	_, err = c.sys.DuplicateHandle(owner, ntapi.Handle(record.HandleValue), 0, 0, ntapi.DuplicateCloseSource)
	if err != nil {
		return &CloseError{
			Reason:      ReasonDuplicate,
			Code:        ntapi.ErrorCode(err),
			PID:         record.OwnerPID,
			HandleValue: record.HandleValue,
			Err:         err,
		}
	}

	log.Debugf("Closed handle 0x%x in pid %d", record.HandleValue, record.OwnerPID)
	return nil
}

package addrmgr

import "errors"

// Error kinds surfaced by the address manager (§7). Callers compare with
// errors.Is; none of these are ever raised as panics.
var (
	ErrDuplicateDUID   = errors.New("addrmgr: duplicate DUID")
	ErrDuplicateIAID   = errors.New("addrmgr: duplicate IAID")
	ErrAlreadyAssigned = errors.New("addrmgr: resource already assigned")

	ErrUnknownClient  = errors.New("addrmgr: unknown client")
	ErrUnknownIA      = errors.New("addrmgr: unknown IA")
	ErrUnknownPrefix  = errors.New("addrmgr: unknown prefix")
	ErrUnknownAddress = errors.New("addrmgr: unknown address")

	ErrWrongIAVariant = errors.New("addrmgr: wrong IA variant")
	ErrNullResource   = errors.New("addrmgr: null resource")

	ErrPersistenceRead  = errors.New("addrmgr: persistence read error")
	ErrPersistenceWrite = errors.New("addrmgr: persistence write error")
)

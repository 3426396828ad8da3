package core

import (
	"errors"
	"fmt"
)

var (
	ErrAssetNotFound       = errors.New("asset not found")
	ErrMalformedAsset      = errors.New("malformed mesh asset")
	ErrPathTooLong         = errors.New("mesh path exceeds maximum length")
	ErrCapacity            = errors.New("capacity exhausted")
	ErrArenaOverflow       = errors.New("arena region overflow")
	ErrUnknownMesh         = errors.New("instances do not match a stored mesh")
	ErrInvalidMesh         = errors.New("invalid mesh id")
	ErrDuplicateMesh       = errors.New("mesh geometry already added")
	ErrInstancesAlreadySet = errors.New("mesh instances already submitted this frame")
	ErrFrameNotStarted     = errors.New("frame not started")
)

type Region uint8

const (
	RegionVertex Region = iota
	RegionIndex
	RegionInstance
)

func (r Region) String() string {
	switch r {
	case RegionVertex:
		return "vertex"
	case RegionIndex:
		return "index"
	case RegionInstance:
		return "instance"
	default:
		return fmt.Sprintf("region(%d)", uint8(r))
	}
}

// OverflowError reports an append that would run past the end of an arena region.
// Nothing is written when it is returned.
type OverflowError struct {
	Region    Region
	Requested uint64
	Available uint64
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("%s region size exceeded: requested %d bytes, %d available", e.Region, e.Requested, e.Available)
}

func (e *OverflowError) Unwrap() error {
	return ErrArenaOverflow
}

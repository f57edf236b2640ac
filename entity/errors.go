package entity

import "errors"

// 调用方错误，均为同步返回、不可重试
var (
	ErrUnknownVehicleID = errors.New("unknown vehicle id")
	ErrNotAnHDV         = errors.New("vehicle is not an HDV")
	ErrNotACAV          = errors.New("vehicle is not a CAV")
	ErrDuplicateID      = errors.New("duplicate vehicle id")
	ErrLaneOutOfRange   = errors.New("lane out of range")
	ErrInvalidVehicle   = errors.New("invalid vehicle")
)

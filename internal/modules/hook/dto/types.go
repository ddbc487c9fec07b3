package dto

import "time"

type HookInfo struct {
	Name    string
	Version string
	Enabled bool
	Binary  string
	Events  []string
}

type DoctorResult struct {
	Name            string
	ChecksumValid   bool
	BinaryReachable bool
	LifecycleOK     bool
	Error           string
}

type EventInput struct {
	Kind                  string
	SessionID             string
	Owner                 *string
	From                  string
	To                    string
	CompletedFocusPeriods int
	Trigger               string
	At                    time.Time
}

type DispatchFailure struct {
	Hook  string
	Error string
}

type DispatchOutput struct {
	Delivered []string
	Failed    []DispatchFailure
}
